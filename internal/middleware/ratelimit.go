package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medibrief/api/internal/apperr"
	"golang.org/x/time/rate"
)

// limiterRegistry holds one token-bucket limiter per source IP, for one
// rate-limit tier. Entries are never evicted in this implementation —
// acceptable for the traffic volumes this API targets; a production
// deployment would add a sweep goroutine.
type limiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newLimiterRegistry(perMin int) *limiterRegistry {
	return &limiterRegistry{limiters: make(map[string]*rate.Limiter), perMin: perMin}
}

func (r *limiterRegistry) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		// Burst equals the per-minute ceiling: a client may spend its whole
		// minute's budget immediately, then must wait for refill.
		l = rate.NewLimiter(rate.Limit(float64(r.perMin)/60.0), r.perMin)
		r.limiters[key] = l
	}
	return l
}

// RateLimit returns Gin middleware enforcing one of the three tiers
// described in §4.11/§6 (global ≈120/min, auth ≈10/min, AI ≈5/min), keyed
// by client IP.
func RateLimit(perMin int) gin.HandlerFunc {
	reg := newLimiterRegistry(perMin)
	return func(c *gin.Context) {
		l := reg.get(c.ClientIP())
		if !l.Allow() {
			ceiling := perMin
			if ceiling < 1 {
				ceiling = 1
			}
			resetIn := time.Duration(60/ceiling) * time.Second
			c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperr.Body{
				Message: "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
