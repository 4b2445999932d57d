package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/aiqueue"
	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/quota"
	"github.com/medibrief/api/internal/repository"
)

// AIHandler implements the async AI summary pipeline's HTTP surface (C8)
// plus the synchronous RAG-chat endpoint.
type AIHandler struct {
	db        *db.DB
	clinics   repository.ClinicRepository
	patients  repository.PatientRepository
	summaries repository.AISummaryRepository
	queue     *aiqueue.Queue
	chat      *aiqueue.ChatService
	limits    quota.Limits
	logger    *zap.Logger
}

func NewAIHandler(
	database *db.DB,
	clinics repository.ClinicRepository,
	patients repository.PatientRepository,
	summaries repository.AISummaryRepository,
	queue *aiqueue.Queue,
	chat *aiqueue.ChatService,
	limits quota.Limits,
	logger *zap.Logger,
) *AIHandler {
	return &AIHandler{
		db: database, clinics: clinics, patients: patients, summaries: summaries,
		queue: queue, chat: chat, limits: limits, logger: logger,
	}
}

// GenerateSummary handles POST /ai/generate-summary/:patientId: quota
// precheck, enqueue, and at-least-once increment (§4.8).
func (h *AIHandler) GenerateSummary(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	userID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var job *aiqueue.Job
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		patient, err := h.patients.GetByID(ctx, tx, clinicID, patientID)
		if err != nil {
			return err
		}
		if patient == nil {
			return apperr.NotFound("patient not found")
		}

		clinic, err := h.clinics.GetByID(ctx, tx, clinicID)
		if err != nil {
			return err
		}
		if clinic == nil {
			return apperr.Internal("clinic not found")
		}

		now := time.Now().UTC()
		limit := h.limits.MonthlyLimit(clinic.SubscriptionPlan)
		effective := clinic.AICallCount
		if !sameUTCMonth(clinic.BillingPeriodStart, now) {
			effective = 0
		}
		if effective >= limit {
			return apperr.RateLimited("monthly AI call quota exceeded", map[string]any{"monthlyLimit": limit})
		}

		job = aiqueue.NewJob(clinicID, patientID, userID)
		if err := h.queue.Enqueue(ctx, job); err != nil {
			return apperr.Unavailable("AI queue is temporarily unavailable")
		}

		if _, err := h.clinics.IncrementAICallCount(ctx, tx, clinicID, now); err != nil {
			h.logger.Warn("increment ai call count", zap.Error(err))
		}
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "status": string(job.State)})
}

// JobStatus handles GET /ai/jobs/:jobId.
func (h *AIHandler) JobStatus(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		fail(c, apperr.Validation("invalid job id"))
		return
	}

	job, err := h.queue.Load(ctx, jobID)
	if err != nil {
		h.logger.Error("load job", zap.Error(err))
		fail(c, apperr.Internal("load job failed"))
		return
	}
	if job == nil || job.ClinicID != middleware.GetClinicID(c) {
		fail(c, apperr.NotFound("job not found"))
		return
	}

	resp := gin.H{"state": string(job.State)}
	if job.SummaryID != nil {
		resp["summaryId"] = job.SummaryID
	}
	if job.FailedReason != "" {
		resp["failedReason"] = job.FailedReason
	}
	c.JSON(http.StatusOK, resp)
}

// SummariesByPatient handles GET /ai/summaries/patient/:patientId.
func (h *AIHandler) SummariesByPatient(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var summaries []models.AISummary
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		summaries, err = h.summaries.ListByPatient(ctx, tx, clinicID, patientID)
		return err
	})
	if err != nil {
		h.logger.Error("list summaries", zap.Error(err))
		fail(c, apperr.Internal("list summaries failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

// SummaryByID handles GET /ai/summaries/:summaryId.
func (h *AIHandler) SummaryByID(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	summaryID, err := uuid.Parse(c.Param("summaryId"))
	if err != nil {
		fail(c, apperr.Validation("invalid summary id"))
		return
	}

	var summary *models.AISummary
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		summary, err = h.summaries.GetByID(ctx, tx, clinicID, summaryID)
		return err
	})
	if err != nil {
		h.logger.Error("get summary", zap.Error(err))
		fail(c, apperr.Internal("get summary failed"))
		return
	}
	if summary == nil {
		fail(c, apperr.NotFound("summary not found"))
		return
	}

	c.JSON(http.StatusOK, summary)
}

// JobsRollup handles GET /ai/jobs: an ADMIN-only roll-up of recent job
// states for the caller's clinic, newest first.
func (h *AIHandler) JobsRollup(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	limit, err := parseLimitQuery(c)
	if err != nil {
		fail(c, err)
		return
	}

	jobs, err := h.queue.ListRecentByClinic(ctx, clinicID, limit)
	if err != nil {
		h.logger.Error("list clinic jobs", zap.Error(err))
		fail(c, apperr.Internal("list jobs failed"))
		return
	}

	type jobSummary struct {
		ID           uuid.UUID  `json:"id"`
		PatientID    uuid.UUID  `json:"patientId"`
		State        string     `json:"state"`
		Attempts     int        `json:"attempts"`
		SummaryID    *uuid.UUID `json:"summaryId,omitempty"`
		FailedReason string     `json:"failedReason,omitempty"`
	}

	entries := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, jobSummary{
			ID: job.ID, PatientID: job.PatientID, State: string(job.State),
			Attempts: job.Attempts, SummaryID: job.SummaryID, FailedReason: job.FailedReason,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type chatRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// Chat handles POST /ai/chat/:patientId: the synchronous RAG variant.
func (h *AIHandler) Chat(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		fail(c, apperr.Validation("invalid patient id"))
		return
	}

	var req chatRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	var answer string
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		patient, err := h.patients.GetByID(ctx, tx, clinicID, patientID)
		if err != nil {
			return err
		}
		if patient == nil {
			return apperr.NotFound("patient not found")
		}
		answer, err = h.chat.Ask(ctx, tx, patient, req.Message)
		return err
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func sameUTCMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
