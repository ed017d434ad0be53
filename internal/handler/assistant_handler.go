package handler

import (
	"context"

	"globalgigs/internal/assistant"
	"globalgigs/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// Assistant is the part of the assistant the action layer needs.
type Assistant interface {
	Chat(ctx context.Context, history []assistant.Turn, message string) (string, error)
	EnhanceSkills(ctx context.Context, pastExperiences, existingSkills string) (string, error)
}

type AssistantHandler struct {
	assistant Assistant
}

func NewAssistantHandler(a Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

func (h *AssistantHandler) Chat(c *gin.Context) {
	if _, _, ok := identity(c); !ok {
		return
	}
	var req httpdto.AssistantChatRequest
	if !bind(c, &req) {
		return
	}
	history := make([]assistant.Turn, 0, len(req.History))
	for _, t := range req.History {
		history = append(history, assistant.Turn{Role: t.Role, Text: t.Text})
	}
	reply, err := h.assistant.Chat(c.Request.Context(), history, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, httpdto.AssistantChatResponse{Reply: reply})
}

func (h *AssistantHandler) EnhanceSkills(c *gin.Context) {
	if _, _, ok := identity(c); !ok {
		return
	}
	var req httpdto.EnhanceSkillsRequest
	if !bind(c, &req) {
		return
	}
	skills, err := h.assistant.EnhanceSkills(c.Request.Context(), req.PastExperiences, req.ExistingSkills)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, httpdto.EnhanceSkillsResponse{Skills: skills})
}
