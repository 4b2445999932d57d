package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medibrief/api/internal/cache"
	"github.com/medibrief/api/internal/db"
)

// HealthHandler implements GET /health, a public liveness probe.
type HealthHandler struct {
	db    *db.DB
	cache *cache.Cache
}

func NewHealthHandler(database *db.DB, c *cache.Cache) *HealthHandler {
	return &HealthHandler{db: database, cache: c}
}

// Check handles GET /health: 200 unless both the database and the cache
// are unreachable, since either alone degraded gracefully is still a
// usable deployment.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	dbErr := h.db.Health(ctx)
	cacheErr := h.cache.Health(ctx)

	if dbErr != nil && cacheErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
		return
	}

	status := gin.H{"status": "ok"}
	if dbErr != nil {
		status["database"] = "down"
	}
	if cacheErr != nil {
		status["cache"] = "down"
	}
	c.JSON(http.StatusOK, status)
}
