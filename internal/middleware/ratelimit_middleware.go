package middleware

import (
	"strconv"

	"globalgigs/internal/redis"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware limits bucket per authenticated user. It must run
// after AuthMiddleware. Limiter failures let the request through.
func RateLimitMiddleware(limiter *redis.RateLimiter, bucket redis.Bucket, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.Allow(c.Request.Context(), userID, bucket)
		if err != nil {
			if l != nil {
				l.Ctx(c.Request.Context()).Warnf("rate limit %s: %v", bucket, err)
			}
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)
		if !result.Allowed {
			c.AbortWithStatusJSON(apperrors.HTTPStatus(apperrors.ErrRateLimited),
				httpdto.NewErrorResponse(apperrors.ErrRateLimited.Error(), apperrors.CodeRateLimited))
			return
		}
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
