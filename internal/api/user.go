package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medibrief/api/internal/apperr"
	"github.com/medibrief/api/internal/db"
	"github.com/medibrief/api/internal/middleware"
	"github.com/medibrief/api/internal/models"
	"github.com/medibrief/api/internal/repository"
)

// UserHandler exposes the authenticated staff principal's own profile.
type UserHandler struct {
	db     *db.DB
	users  repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(database *db.DB, users repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{db: database, users: users, logger: logger}
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	subjectID := middleware.GetSubjectID(c)
	ctx := c.Request.Context()

	var user *models.User
	err := h.db.WithTenantTx(ctx, clinicID, func(tx pgxTx) error {
		u, err := h.users.GetByID(ctx, tx, clinicID, subjectID)
		if err != nil {
			return err
		}
		if u == nil {
			return apperr.NotFound("user not found")
		}
		user = u
		return nil
	})
	if err != nil {
		h.logger.Error("get self", zap.Error(err))
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
