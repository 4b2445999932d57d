package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
	"github.com/medibrief/api/internal/structuredinput"
)

const vitalFetchLimit = 90

// VitalHandler implements the vital-sign ingestion and retrieval surface
// of C4. Every write invalidates the patient's cached structured-input
// view so the next AI generation or analytics read sees the new reading.
type VitalHandler struct {
	vitals  repository.VitalRepository
	db      *db.DB
	builder *structuredinput.Builder
	logger  *zap.Logger
}

func NewVitalHandler(database *db.DB, vitals repository.VitalRepository, builder *structuredinput.Builder, logger *zap.Logger) *VitalHandler {
	return &VitalHandler{db: database, vitals: vitals, builder: builder, logger: logger}
}

type vitalRequest struct {
	PatientID    uuid.UUID  `json:"patientId" binding:"required"`
	Type         string     `json:"type" binding:"required,oneof=BP GLUCOSE HEART_RATE WEIGHT"`
	Value        string     `json:"value" binding:"required,max=50"`
	NumericValue *float64   `json:"numericValue"`
	Unit         *string    `json:"unit" binding:"omitempty,max=20"`
	RecordedAt   *time.Time `json:"recordedAt"`
}

// Create handles POST /vitals.
func (h *VitalHandler) Create(c *gin.Context) {
	var req vitalRequest
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

	var vital *models.VitalRecord
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		vital, err = h.vitals.Create(ctx, tx, clinicID, &models.VitalRecord{
			PatientID: req.PatientID, Type: models.VitalType(req.Type), Value: req.Value,
			NumericValue: req.NumericValue, Unit: req.Unit, RecordedAt: recordedAt,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fail(c, apperr.NotFound("patient not found"))
			return
		}
		h.logger.Error("create vital", zap.Error(err))
		fail(c, apperr.Internal("create vital failed"))
		return
	}

	h.builder.Invalidate(ctx, req.PatientID)
	c.JSON(http.StatusCreated, vital)
}

// ListByPatient handles GET /vitals/:patientId.
func (h *VitalHandler) ListByPatient(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var records []models.VitalRecord
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		records, err = h.vitals.ListByPatient(ctx, tx, clinicID, patientID, vitalFetchLimit)
		return err
	})
	if err != nil {
		h.logger.Error("list vitals", zap.Error(err))
		fail(c, apperr.Internal("list vitals failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}
