package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/medibrief/api/internal/apperr"
)

// OriginPolicy rejects requests whose Origin header isn't on the allowlist;
// an empty allowlist admits every origin, and requests without an Origin
// header always pass. In production it additionally rejects loopback
// origins, allowlisted or not — a dev browser
// tab pointed at localhost must never be trusted against a production API
// (§4.11).
func OriginPolicy(allowlist []string, production bool) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, o := range allowlist {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			// Non-browser clients (curl, server-to-server) don't send Origin.
			c.Next()
			return
		}

		if production && isLoopbackOrigin(origin) {
			abort(c, apperr.Forbidden("origin not allowed"))
			return
		}

		if len(allowed) > 0 {
			if _, ok := allowed[origin]; !ok {
				abort(c, apperr.Forbidden("origin not allowed"))
				return
			}
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Next()
	}
}

func isLoopbackOrigin(origin string) bool {
	lower := strings.ToLower(origin)
	for _, host := range []string{"localhost", "127.0.0.1", "[::1]", "0.0.0.0"} {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// RequireHTTPS rejects plaintext requests when enforce is set (the
// REQUIRE_HTTPS setting), whatever the environment. It trusts
// X-Forwarded-Proto because the API is expected to sit behind a TLS-
// terminating load balancer, the same assumption the teacher's ALB/ECS
// health-check comment makes elsewhere in this codebase.
func RequireHTTPS(enforce bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enforce {
			c.Next()
			return
		}
		proto := c.GetHeader("X-Forwarded-Proto")
		if proto == "" {
			if c.Request.TLS != nil {
				proto = "https"
			} else {
				proto = "http"
			}
		}
		if proto != "https" {
			c.AbortWithStatusJSON(http.StatusForbidden, apperr.Body{Message: "https required"})
			return
		}
		c.Next()
	}
}
