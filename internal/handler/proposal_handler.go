package handler

import (
	"globalgigs/internal/domain"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	service *services.ProposalService
}

func NewProposalHandler(service *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{service: service}
}

// Create sends a proposal from the calling freelancer.
func (h *ProposalHandler) Create(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	if role != domain.RoleFreelancer {
		fail(c, apperrors.ErrForbidden)
		return
	}
	var req httpdto.CreateProposalRequest
	if !bind(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), services.CreateProposalInput{
		ConversationID: req.ConversationID,
		FreelancerID:   userID,
		ClientID:       req.ClientID,
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		UpdatedGigID:   req.UpdatedGigID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, p)
}

func (h *ProposalHandler) Get(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, p)
}

// Accept returns the gig the proposal created or revised. A second accept
// of the same proposal is a CONFLICT.
func (h *ProposalHandler) Accept(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	g, err := h.service.Accept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, g)
}

// Resume finishes an acceptance whose follow-up writes were interrupted.
func (h *ProposalHandler) Resume(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	g, err := h.service.ResumeAccept(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, g)
}

func (h *ProposalHandler) Decline(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	p, err := h.service.Decline(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, p)
}
