package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/analytics"
	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
	"github.com/medibrief/api/internal/structuredinput"
)

const labFetchLimit = 90

// LabHandler implements the lab-result ingestion and retrieval surface of
// C4, annotating each read with its reference-range flag (C5).
type LabHandler struct {
	labs    repository.LabRepository
	db      *db.DB
	builder *structuredinput.Builder
	logger  *zap.Logger
}

func NewLabHandler(database *db.DB, labs repository.LabRepository, builder *structuredinput.Builder, logger *zap.Logger) *LabHandler {
	return &LabHandler{db: database, labs: labs, builder: builder, logger: logger}
}

type labRequest struct {
	PatientID      uuid.UUID  `json:"patientId" binding:"required"`
	TestName       string     `json:"testName" binding:"required,max=100"`
	Value          string     `json:"value" binding:"required,max=50"`
	NumericValue   *float64   `json:"numericValue"`
	Unit           *string    `json:"unit" binding:"omitempty,max=20"`
	ReferenceRange *string    `json:"referenceRange" binding:"omitempty,max=50"`
	RecordedAt     *time.Time `json:"recordedAt"`
}

type labResponse struct {
	models.LabResult
	FlagStatus analytics.LabFlagStatus `json:"flagStatus"`
}

func flagLabResult(l models.LabResult) labResponse {
	rng := analytics.ReferenceRange{}
	if l.ReferenceRange != nil {
		rng = analytics.ParseReferenceRange(*l.ReferenceRange)
	}
	return labResponse{LabResult: l, FlagStatus: analytics.FlagLab(l.NumericValue, rng)}
}

// Create handles POST /labs.
func (h *LabHandler) Create(c *gin.Context) {
	var req labRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	var lab *models.LabResult
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		lab, err = h.labs.Create(ctx, tx, clinicID, &models.LabResult{
			PatientID: req.PatientID, TestName: req.TestName, Value: req.Value,
			NumericValue: req.NumericValue, Unit: req.Unit, ReferenceRange: req.ReferenceRange,
			RecordedAt: recordedAt,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fail(c, apperr.NotFound("patient not found"))
			return
		}
		h.logger.Error("create lab", zap.Error(err))
		fail(c, apperr.Internal("create lab failed"))
		return
	}

	h.builder.Invalidate(ctx, req.PatientID)
	c.JSON(http.StatusCreated, flagLabResult(*lab))
}

// ListByPatient handles GET /labs/:patientId.
func (h *LabHandler) ListByPatient(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var records []models.LabResult
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		records, err = h.labs.ListByPatient(ctx, tx, clinicID, patientID, labFetchLimit)
		return err
	})
	if err != nil {
		h.logger.Error("list labs", zap.Error(err))
		fail(c, apperr.Internal("list labs failed"))
		return
	}

	flagged := make([]labResponse, 0, len(records))
	for _, r := range records {
		flagged = append(flagged, flagLabResult(r))
	}

	c.JSON(http.StatusOK, gin.H{"data": flagged})
}
