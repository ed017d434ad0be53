package handler

import (
	"globalgigs/internal/domain"
	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// Create opens the caller's conversation with a freelancer, reusing the
// existing one for the pair.
func (h *ConversationHandler) Create(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	if role != domain.RoleClient {
		fail(c, apperrors.ErrForbidden)
		return
	}
	var req httpdto.CreateConversationRequest
	if !bind(c, &req) {
		return
	}

	conv, err := h.service.FindOrCreate(c.Request.Context(), userID, req.FreelancerID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, conv)
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	items, err := h.service.ListForUser(c.Request.Context(), userID, role)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, items)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	conv, err := h.service.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, conv)
}

func (h *ConversationHandler) SendMessage(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req httpdto.SendMessageRequest
	if !bind(c, &req) {
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), c.Param("id"), conversation.Message{
		SenderID: userID,
		Text:     req.Text,
	})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, msg)
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	msgs, err := h.service.Messages(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, msgs)
}
