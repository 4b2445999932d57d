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

// ConsultationHandler implements the consultation surface of C4. The
// doctor on a created consultation is always the authenticated caller —
// nothing in the request body names who performed the visit.
type ConsultationHandler struct {
	db            *db.DB
	consultations repository.ConsultationRepository
	builder       *structuredinput.Builder
	logger        *zap.Logger
}

func NewConsultationHandler(database *db.DB, consultations repository.ConsultationRepository, builder *structuredinput.Builder, logger *zap.Logger) *ConsultationHandler {
	return &ConsultationHandler{db: database, consultations: consultations, builder: builder, logger: logger}
}

type consultationRequest struct {
	PatientID uuid.UUID  `json:"patientId" binding:"required"`
	Date      *time.Time `json:"date"`
	Symptoms  string     `json:"symptoms" binding:"required,max=2000"`
	Notes     string     `json:"notes" binding:"max=4000"`
}

// Create handles POST /consultations.
func (h *ConsultationHandler) Create(c *gin.Context) {
	var req consultationRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	clinicID := middleware.GetClinicID(c)
	doctorID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	date := time.Now().UTC()
	if req.Date != nil {
		date = *req.Date
	}

	var consultation *models.Consultation
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		consultation, err = h.consultations.Create(ctx, tx, clinicID, &models.Consultation{
			PatientID: req.PatientID, DoctorID: doctorID, Date: date,
			Symptoms: req.Symptoms, Notes: req.Notes,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			fail(c, apperr.NotFound("patient not found"))
			return
		}
		h.logger.Error("create consultation", zap.Error(err))
		fail(c, apperr.Internal("create consultation failed"))
		return
	}

	h.builder.Invalidate(ctx, req.PatientID)
	c.JSON(http.StatusCreated, consultation)
}

// ListByPatient handles GET /consultations/:patientId?cursor&limit.
func (h *ConsultationHandler) ListByPatient(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	cursor, err := parseCursorQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := parseLimitQuery(c)
	if err != nil {
		fail(c, err)
		return
	}

	var page repository.Page[models.Consultation]
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		page, err = h.consultations.ListByPatient(ctx, tx, clinicID, patientID, cursor, limit)
		return err
	})
	if err != nil {
		h.logger.Error("list consultations", zap.Error(err))
		fail(c, apperr.Internal("list consultations failed"))
		return
	}

	c.JSON(http.StatusOK, page)
}
