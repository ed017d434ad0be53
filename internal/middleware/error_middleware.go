package middleware

import (
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error as the standard
// envelope, and turns panics into INTERNAL results.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if l != nil {
					l.Ctx(c.Request.Context()).Errorw("panic in handler", zap.Any("panic", r))
				}
				c.AbortWithStatusJSON(500, httpdto.NewErrorResponse("an unknown error occurred", apperrors.CodeInternal))
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Ctx(c.Request.Context()).Errorf("request error: %s", err.Error())
		}
		c.JSON(apperrors.HTTPStatus(err), httpdto.NewErrorResponse(apperrors.Message(err), apperrors.Kind(err)))
	}
}
