package middleware

import (
	"net/http"
	"strings"

	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by AuthMiddleware.
const (
	ContextUserID = "userId"
	ContextRole   = "role"
)

// AuthMiddleware verifies the bearer token and puts the caller's identity
// on both the gin context and the request context.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := service.ParseAccessToken(extractBearer(c))
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", apperrors.CodeUnauthorized))
			return
		}

		ctx := services.WithIdentity(c.Request.Context(), claims.Subject, claims.Role)
		ctx = logger.WithUserID(ctx, claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
