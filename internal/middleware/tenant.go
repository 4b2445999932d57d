package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medibrief/api/internal/apperr"
)

// TenantContext is the second half of §4.2: once AuthMiddleware has
// verified the token and attached clinic id to the request context, this
// middleware refuses to let the request proceed at all if that id is
// missing or the zero value. The actual database-level binding (SET LOCAL
// via set_config) happens per-transaction in db.WithTenantTx — this
// middleware is the fast-fail gate before any query is attempted.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClinicID(c) == uuid.Nil {
			abort(c, apperr.Forbidden("no tenant context bound"))
			return
		}
		c.Next()
	}
}
