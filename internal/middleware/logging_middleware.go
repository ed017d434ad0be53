package middleware

import (
	"time"

	"globalgigs/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingMiddleware writes one access line per request. Health probes are
// logged at debug level.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		fields := []interface{}{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		sugar := log.Ctx(c.Request.Context())
		switch path := c.Request.URL.Path; {
		case path == "/ping" || path == "/health":
			sugar.Debugw("request", fields...)
		case c.Writer.Status() >= 500:
			sugar.Errorw("request", fields...)
		default:
			sugar.Infow("request", fields...)
		}
	}
}
