package handler

import (
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.FreelancerService
}

func NewUserHandler(service *services.FreelancerService) *UserHandler {
	return &UserHandler{service: service}
}

// Create stores the signup record for the token's subject. The role in the
// body must agree with the token when the token carries one.
func (h *UserHandler) Create(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	var req httpdto.CreateUserRequest
	if !bind(c, &req) {
		return
	}
	if role != "" && role != req.Role {
		fail(c, apperrors.ErrForbidden)
		return
	}
	u, err := h.service.CreateUser(c.Request.Context(), userID, req.Email, req.Role, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, u)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	u, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, u)
}

func (h *UserHandler) Update(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req httpdto.UpdateUserRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.service.UpdateUser(c.Request.Context(), userID, services.UserPatch{
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, u)
}
