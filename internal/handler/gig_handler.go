package handler

import (
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type GigHandler struct {
	service *services.GigService
}

func NewGigHandler(service *services.GigService) *GigHandler {
	return &GigHandler{service: service}
}

type editGigResponse struct {
	Gig      gig.Gig       `json:"gig"`
	Proposal *gig.Proposal `json:"proposal,omitempty"`
}

func (h *GigHandler) List(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	gigs, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, gigs)
}

func (h *GigHandler) Get(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	g, err := h.service.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, g)
}

// Edit applies title and description directly. A new price is returned as
// a pending update proposal instead.
func (h *GigHandler) Edit(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req httpdto.EditGigRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.service.Edit(c.Request.Context(), c.Param("id"), userID, services.EditGigInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, editGigResponse{Gig: res.Gig, Proposal: res.Proposal})
}

func (h *GigHandler) Complete(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	g, err := h.service.Complete(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, g)
}

func (h *GigHandler) Cancel(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	g, err := h.service.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, g)
}
