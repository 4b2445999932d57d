package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/audit"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
	"github.com/medibrief/api/internal/structuredinput"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	inviteValidity   = 72 * time.Hour
)

// PatientHandler implements the patient CRUD surface of C4, plus the
// invite-creation operation from C1.
type PatientHandler struct {
	db       *db.DB
	patients repository.PatientRepository
	audits   repository.AuditRepository
	builder  *structuredinput.Builder
	logger   *zap.Logger
}

func NewPatientHandler(database *db.DB, patients repository.PatientRepository, audits repository.AuditRepository, builder *structuredinput.Builder, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{db: database, patients: patients, audits: audits, builder: builder, logger: logger}
}

type patientRequest struct {
	FirstName   string  `json:"firstName" binding:"required,max=100"`
	LastName    string  `json:"lastName" binding:"required,max=100"`
	DateOfBirth string  `json:"dateOfBirth" binding:"required"`
	Gender      string  `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	Phone       *string `json:"phone" binding:"omitempty,min=6,max=30"`
	Email       *string `json:"email" binding:"omitempty,email"`
}

func (r patientRequest) parseDOB() (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, r.DateOfBirth); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("dateOfBirth must be an ISO 8601 date", apperr.FieldError{Field: "dateOfBirth", Message: "must be coercible to a date"})
}

// Create handles POST /patients.
func (h *PatientHandler) Create(c *gin.Context) {
	var req patientRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	dob, err := req.parseDOB()
	if err != nil {
		fail(c, err)
		return
	}

	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var patient *models.Patient
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.Create(ctx, tx, &models.Patient{
			ClinicID: clinicID, FirstName: req.FirstName, LastName: req.LastName,
			DateOfBirth: dob, Gender: req.Gender, Phone: req.Phone, Email: req.Email,
		})
		if err != nil {
			return err
		}
		return audit.Write(ctx, tx, h.audits, subjectID, "PATIENT_CREATE", "patient", patient.ID)
	})
	if err != nil {
		h.logger.Error("create patient", zap.Error(err))
		fail(c, apperr.Internal("create patient failed"))
		return
	}

	c.JSON(http.StatusCreated, patient)
}

// List handles GET /patients?cursor&limit.
func (h *PatientHandler) List(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

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

	var page repository.Page[models.Patient]
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		page, err = h.patients.List(ctx, tx, clinicID, cursor, limit)
		return err
	})
	if err != nil {
		h.logger.Error("list patients", zap.Error(err))
		fail(c, apperr.Internal("list patients failed"))
		return
	}

	c.JSON(http.StatusOK, page)
}

// Get handles GET /patients/:id.
func (h *PatientHandler) Get(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var patient *models.Patient
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.GetByID(ctx, tx, clinicID, id)
		return err
	})
	if err != nil {
		h.logger.Error("get patient", zap.Error(err))
		fail(c, apperr.Internal("get patient failed"))
		return
	}
	if patient == nil {
		fail(c, apperr.NotFound("patient not found"))
		return
	}

	c.JSON(http.StatusOK, patient)
}

// Update handles PUT /patients/:id.
func (h *PatientHandler) Update(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var req patientRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}
	dob, err := req.parseDOB()
	if err != nil {
		fail(c, err)
		return
	}

	var patient *models.Patient
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.Update(ctx, tx, clinicID, &models.Patient{
			ID: id, FirstName: req.FirstName, LastName: req.LastName,
			DateOfBirth: dob, Gender: req.Gender, Phone: req.Phone, Email: req.Email,
		})
		if err != nil {
			return err
		}
		if patient == nil {
			return apperr.NotFound("patient not found")
		}
		return audit.Write(ctx, tx, h.audits, subjectID, "PATIENT_UPDATE", "patient", id)
	})
	if err != nil {
		h.logger.Error("update patient", zap.Error(err))
		fail(c, err)
		return
	}

	h.builder.Invalidate(ctx, id)
	c.JSON(http.StatusOK, patient)
}

// Archive handles DELETE /patients/:id (ADMIN-only, soft delete).
func (h *PatientHandler) Archive(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		if err := h.patients.Archive(ctx, tx, clinicID, id); err != nil {
			return err
		}
		return audit.Write(ctx, tx, h.audits, subjectID, "PATIENT_ARCHIVE", "patient", id)
	})
	if err != nil {
		fail(c, apperr.NotFound("patient not found"))
		return
	}

	h.builder.Invalidate(ctx, id)
	c.Status(http.StatusNoContent)
}

// CreateInvite handles POST /patients/:id/invite.
func (h *PatientHandler) CreateInvite(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var patient *models.Patient
	var token string
	var expiresAt time.Time

	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.GetByID(ctx, tx, clinicID, id)
		if err != nil {
			return err
		}
		if patient == nil {
			return apperr.NotFound("patient not found")
		}
		if patient.PasswordHash != nil {
			return apperr.Conflict("patient already has portal credentials")
		}

		token = uuid.NewString()
		expiresAt = time.Now().UTC().Add(inviteValidity)
		if err := h.patients.SetInvite(ctx, tx, clinicID, id, token, expiresAt); err != nil {
			return err
		}
		return audit.Write(ctx, tx, h.audits, subjectID, "PATIENT_INVITE_CREATE", "patient", id)
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inviteToken":     token,
		"inviteExpiresAt": expiresAt,
		"patientName":     patient.FirstName + " " + patient.LastName,
	})
}

func parseCursorQuery(c *gin.Context) (*uuid.UUID, error) {
	raw := c.Query("cursor")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid cursor")
	}
	return &id, nil
}

// parseLimitQuery defaults to defaultPageLimit when the query parameter is
// absent, but rejects any value outside [1, maxPageLimit] rather than
// silently clamping it — limit=0 and limit=101 are both client errors
// (§8), not requests for "use the default" or "use the max".
func parseLimitQuery(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultPageLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxPageLimit {
		return 0, apperr.Validation("limit must be between 1 and 100")
	}
	return n, nil
}
