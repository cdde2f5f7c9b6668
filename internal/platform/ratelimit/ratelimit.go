// Package ratelimit gates the orchestrator's payment ingress endpoint with
// a per-process token bucket from golang.org/x/time/rate, carried from the
// gateway example's rate-limiting middleware.
package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"paysaga/internal/platform/apierrors"
)

// Limiter wraps a single shared token bucket. It is intentionally
// process-local rather than distributed: the orchestrator is meant to run
// as one logical ingress, and a distributed limiter would need its own
// coordination store for a property spec.md does not ask for.
type Limiter struct {
	limiter *rate.Limiter
}

func New(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Allow reports whether a request may proceed right now.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Middleware rejects requests over the configured rate with a 429 carrying
// the platform's RateLimited classification.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			apiErr := apierrors.NewRateLimitedError()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apiErr)
			return
		}
		c.Next()
	}
}
