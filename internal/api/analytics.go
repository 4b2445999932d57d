package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/analytics"
	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

// AnalyticsHandler implements the clinical analytics surface of C5: trend
// computation, lab flagging, and composite risk scoring at read time.
type AnalyticsHandler struct {
	db        *db.DB
	vitals    repository.VitalRepository
	labs      repository.LabRepository
	summaries repository.AISummaryRepository
	logger    *zap.Logger
}

func NewAnalyticsHandler(database *db.DB, vitals repository.VitalRepository, labs repository.LabRepository, summaries repository.AISummaryRepository, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{db: database, vitals: vitals, labs: labs, summaries: summaries, logger: logger}
}

var trendedVitalTypes = []models.VitalType{models.VitalBP, models.VitalGlucose, models.VitalHeartRate, models.VitalWeight}

// PatientAnalytics handles GET /analytics/patient/:patientId.
func (h *AnalyticsHandler) PatientAnalytics(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var vitals []models.VitalRecord
	var labs []models.LabResult
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		vitals, err = h.vitals.ListByPatient(ctx, tx, clinicID, patientID, vitalFetchLimit)
		if err != nil {
			return err
		}
		labs, err = h.labs.ListByPatient(ctx, tx, clinicID, patientID, labFetchLimit)
		return err
	})
	if err != nil {
		h.logger.Error("patient analytics", zap.Error(err))
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

	var latestSummary *models.AISummary
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		summaries, err := h.summaries.ListByPatient(ctx, tx, clinicID, patientID)
		if err != nil || len(summaries) == 0 {
			return err
		}
		latestSummary = &summaries[0]
		return nil
	})
	if err != nil {
		h.logger.Warn("load latest summary for risk score", zap.Error(err))
	}

	symptoms := make([]string, 0)
	activeFlags := 0
	if latestSummary != nil {
		activeFlags = latestSummary.RiskFlags.ActiveCount()
	}

	risk := analytics.ComputeRiskScore(analytics.RiskScoreInput{
		AnomalyCount:   anomalyCount,
		ActiveAIFlags:  activeFlags,
		LabStatuses:    labStatuses,
		RecentSymptoms: symptoms,
	})

	c.JSON(http.StatusOK, gin.H{"trends": trends, "labs": labFlags, "risk": risk})
}

// ClinicRisk handles GET /analytics/clinic-risk: a roll-up of the latest
// AI-derived risk flags across every patient in the clinic.
func (h *AnalyticsHandler) ClinicRisk(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	var latest []models.AISummary
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		latest, err = h.summaries.ListLatestPerPatient(ctx, tx, clinicID)
		return err
	})
	if err != nil {
		h.logger.Error("clinic risk rollup", zap.Error(err))
		fail(c, apperr.Internal("clinic risk rollup failed"))
		return
	}

	type rollupEntry struct {
		PatientID uuid.UUID        `json:"patientId"`
		RiskFlags models.RiskFlags `json:"riskFlags"`
		UpdatedAt interface{}      `json:"updatedAt"`
	}

	entries := make([]rollupEntry, 0, len(latest))
	for _, s := range latest {
		entries = append(entries, rollupEntry{PatientID: s.PatientID, RiskFlags: s.RiskFlags, UpdatedAt: s.CreatedAt})
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
