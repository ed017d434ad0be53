package handler

import (
	"net/http"

	"globalgigs/internal/domain"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"

	"github.com/gin-gonic/gin"
)

// identity returns the caller set by the auth middleware, writing a 401
// when it is missing.
func identity(c *gin.Context) (string, domain.Role, bool) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok || userID == "" {
		fail(c, apperrors.ErrUnauthorized)
		return "", "", false
	}
	role, _ := services.RoleFromContext(c.Request.Context())
	return userID, role, true
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, apperrors.Invalid("body", "invalid request"))
		return false
	}
	return true
}

func succeed[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(data))
}

func fail(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), httpdto.FromError(err))
}
