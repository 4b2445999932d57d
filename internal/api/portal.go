package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/analytics"
	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/auth"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

// PortalHandler implements the PATIENT-role self-service surface: a
// patient can only ever read or mutate their own record, never another
// patient's, so every handler here ignores any :id route parameter and
// uses the authenticated subject id exclusively.
type PortalHandler struct {
	db            *db.DB
	patients      repository.PatientRepository
	vitals        repository.VitalRepository
	labs          repository.LabRepository
	consultations repository.ConsultationRepository
	summaries     repository.AISummaryRepository
	logger        *zap.Logger
}

func NewPortalHandler(
	database *db.DB,
	patients repository.PatientRepository,
	vitals repository.VitalRepository,
	labs repository.LabRepository,
	consultations repository.ConsultationRepository,
	summaries repository.AISummaryRepository,
	logger *zap.Logger,
) *PortalHandler {
	return &PortalHandler{
		db: database, patients: patients, vitals: vitals, labs: labs,
		consultations: consultations, summaries: summaries, logger: logger,
	}
}

// Me handles GET /portal/me.
func (h *PortalHandler) Me(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var patient *models.Patient
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		patient, err = h.patients.GetByID(ctx, tx, clinicID, subjectID)
		return err
	})
	if err != nil || patient == nil {
		fail(c, apperr.NotFound("patient not found"))
		return
	}

	c.JSON(http.StatusOK, patient)
}

type portalProfileRequest struct {
	Phone string `json:"phone" binding:"required,min=6,max=30"`
}

// UpdateProfile handles PUT /portal/me: the only self-editable field is
// the contact phone number.
func (h *PortalHandler) UpdateProfile(c *gin.Context) {
	var req portalProfileRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		return h.patients.SetPhone(ctx, tx, clinicID, subjectID, req.Phone)
	})
	if err != nil {
		h.logger.Error("update patient profile", zap.Error(err))
		fail(c, apperr.Internal("update profile failed"))
		return
	}

	c.Status(http.StatusNoContent)
}

type portalSecurityRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// UpdateSecurity handles PUT /portal/security: password rotation, gated
// on proving the current password.
func (h *PortalHandler) UpdateSecurity(c *gin.Context) {
	var req portalSecurityRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		patient, err := h.patients.GetByID(ctx, tx, clinicID, subjectID)
		if err != nil {
			return err
		}
		if patient == nil || patient.PasswordHash == nil {
			return apperr.NotFound("patient not found")
		}
		if !auth.ComparePassword(*patient.PasswordHash, req.CurrentPassword) {
			return apperr.Unauthenticated("current password is incorrect")
		}

		newHash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			return apperr.Internal("update security failed")
		}
		return h.patients.SetPassword(ctx, tx, clinicID, subjectID, newHash)
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Vitals handles GET /portal/vitals.
func (h *PortalHandler) Vitals(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var records []models.VitalRecord
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		records, err = h.vitals.ListByPatient(ctx, tx, clinicID, subjectID, vitalFetchLimit)
		return err
	})
	if err != nil {
		h.logger.Error("portal list vitals", zap.Error(err))
		fail(c, apperr.Internal("list vitals failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// Labs handles GET /portal/labs.
func (h *PortalHandler) Labs(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var records []models.LabResult
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		records, err = h.labs.ListByPatient(ctx, tx, clinicID, subjectID, labFetchLimit)
		return err
	})
	if err != nil {
		h.logger.Error("portal list labs", zap.Error(err))
		fail(c, apperr.Internal("list labs failed"))
		return
	}

	flagged := make([]labResponse, 0, len(records))
	for _, r := range records {
		flagged = append(flagged, flagLabResult(r))
	}

	c.JSON(http.StatusOK, gin.H{"data": flagged})
}

// Appointments handles GET /portal/appointments?cursor&limit: the patient's
// own consultation history, cursor-paginated like the staff consultation
// list.
func (h *PortalHandler) Appointments(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
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

	var page repository.Page[models.Consultation]
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		page, err = h.consultations.ListByPatient(ctx, tx, clinicID, subjectID, cursor, limit)
		return err
	})
	if err != nil {
		h.logger.Error("portal list appointments", zap.Error(err))
		fail(c, apperr.Internal("list appointments failed"))
		return
	}

	c.JSON(http.StatusOK, page)
}

// Summaries handles GET /portal/summaries.
func (h *PortalHandler) Summaries(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var summaries []models.AISummary
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		summaries, err = h.summaries.ListByPatient(ctx, tx, clinicID, subjectID)
		return err
	})
	if err != nil {
		h.logger.Error("portal list summaries", zap.Error(err))
		fail(c, apperr.Internal("list summaries failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

// Analytics handles GET /portal/analytics.
func (h *PortalHandler) Analytics(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var vitals []models.VitalRecord
	var labs []models.LabResult
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		vitals, err = h.vitals.ListByPatient(ctx, tx, clinicID, subjectID, vitalFetchLimit)
		if err != nil {
			return err
		}
		labs, err = h.labs.ListByPatient(ctx, tx, clinicID, subjectID, labFetchLimit)
		return err
	})
	if err != nil {
		h.logger.Error("portal analytics", zap.Error(err))
		fail(c, apperr.Internal("compute analytics failed"))
		return
	}

	trends := make([]analytics.Trend, 0, len(trendedVitalTypes))
	anomalyCount := 0
	for _, t := range trendedVitalTypes {
		points := make([]analytics.VitalPoint, 0)
		for _, v := range vitals {
			if v.Type != t || v.NumericValue == nil {
				continue
			}
			points = append(points, analytics.VitalPoint{RecordedAtUnix: v.RecordedAt.Unix(), Numeric: *v.NumericValue})
		}
		trend := analytics.BuildTrend(string(t), points, analytics.DefaultZThreshold)
		anomalyCount += len(trend.Anomalies)
		trends = append(trends, trend)
	}

	labStatuses := make([]analytics.LabFlagStatus, 0, len(labs))
	labFlags := make([]labResponse, 0, len(labs))
	for _, l := range labs {
		flagged := flagLabResult(l)
		labFlags = append(labFlags, flagged)
		labStatuses = append(labStatuses, flagged.FlagStatus)
	}

	risk := analytics.ComputeRiskScore(analytics.RiskScoreInput{
		AnomalyCount:   anomalyCount,
		LabStatuses:    labStatuses,
		RecentSymptoms: []string{},
	})

	c.JSON(http.StatusOK, gin.H{"trends": trends, "labs": labFlags, "risk": risk})
}
