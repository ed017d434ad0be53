package handler

import (
	"strconv"

	"globalgigs/internal/domain"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"

	"github.com/gin-gonic/gin"
)

type FreelancerHandler struct {
	service *services.FreelancerService
}

func NewFreelancerHandler(service *services.FreelancerService) *FreelancerHandler {
	return &FreelancerHandler{service: service}
}

func (h *FreelancerHandler) List(c *gin.Context) {
	profiles, err := h.service.ListFreelancers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, profiles)
}

func (h *FreelancerHandler) Get(c *gin.Context) {
	p, err := h.service.GetFreelancer(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, p)
}

// Search is findFreelancers over HTTP: ?q=<text>&limit=<n>.
func (h *FreelancerHandler) Search(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, apperrors.Invalid("limit", "must be a positive number"))
			return
		}
		limit = n
	}
	matches, err := h.service.FindFreelancers(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, matches)
}

func (h *FreelancerHandler) UpdateProfile(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	if role != domain.RoleFreelancer {
		fail(c, apperrors.ErrForbidden)
		return
	}
	var req httpdto.UpdateProfileRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.service.UpdateFreelancerProfile(c.Request.Context(), userID, services.ProfilePatch{
		Name:         req.Name,
		Role:         req.Role,
		Category:     req.Category,
		Rate:         req.Rate,
		Location:     req.Location,
		Bio:          req.Bio,
		Skills:       req.Skills,
		Experience:   req.Experience,
		Availability: req.Availability,
	})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, p)
}

func (h *FreelancerHandler) UpdatePortfolio(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	if role != domain.RoleFreelancer {
		fail(c, apperrors.ErrForbidden)
		return
	}
	var req httpdto.UpdatePortfolioRequest
	if !bind(c, &req) {
		return
	}
	items := make([]services.PortfolioInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.PortfolioInput{
			Title:            it.Title,
			Description:      it.Description,
			ImageURLs:        it.ImageURLs,
			TechnologiesUsed: it.TechnologiesUsed,
		})
	}
	p, err := h.service.UpdatePortfolio(c.Request.Context(), userID, items)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, p)
}
