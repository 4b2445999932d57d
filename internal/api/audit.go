package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

// AuditHandler exposes the ADMIN-only audit-log read surface.
type AuditHandler struct {
	db     *db.DB
	audits repository.AuditRepository
	logger *zap.Logger
}

func NewAuditHandler(database *db.DB, audits repository.AuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{db: database, audits: audits, logger: logger}
}

// List handles GET /audit?page&limit&action&entityType&userId.
func (h *AuditHandler) List(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	ctx := c.Request.Context()

	limit, err := parseLimitQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	var userID *uuid.UUID
	if raw := c.Query("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, apperr.Validation("invalid userId"))
			return
		}
		userID = &id
	}

	var logs []models.AuditLog
	err = h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		var err error
		logs, err = h.audits.List(ctx, tx, clinicID, page, limit, c.Query("action"), c.Query("entityType"), userID)
		return err
	})
	if err != nil {
		h.logger.Error("list audit log", zap.Error(err))
		fail(c, apperr.Internal("list audit log failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": logs})
}
