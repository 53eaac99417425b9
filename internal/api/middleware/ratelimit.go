package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-yield-ledger/internal/api/shared/errors"
	"github.com/feral-file/ff-yield-ledger/internal/logger"
	"github.com/feral-file/ff-yield-ledger/internal/ratelimit"
)

// RateLimit returns a gin middleware that spends one request of the caller's
// budget. Requests are keyed by the authenticated wallet, or by client IP
// when the route is unauthenticated, so it must run after Auth.
func RateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if caller, ok := CallerFromContext(c); ok {
			key = "wallet:" + strings.ToLower(caller.Hex())
		}

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.ErrorCtx(c.Request.Context(), err,
				zap.String("path", c.Request.URL.Path),
				zap.String("limiter_key", key))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				apierrors.NewServiceError("Rate limiter unavailable"))
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierrors.NewRateLimitedError("Too many requests", "retry after "+strconv.Itoa(retryAfter)+"s"))
			return
		}

		c.Next()
	}
}
