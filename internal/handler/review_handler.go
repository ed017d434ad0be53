package handler

import (
	"globalgigs/internal/domain/review"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	service *services.ReviewService
}

func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type reviewListResponse struct {
	Reviews       []review.Review `json:"reviews"`
	AverageRating float64         `json:"averageRating"`
	ReviewCount   int             `json:"reviewCount"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req httpdto.CreateReviewRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.service.Add(c.Request.Context(), services.AddReviewInput{
		FreelancerID: c.Param("id"),
		ClientID:     userID,
		Rating:       req.Rating,
		Comment:      req.Comment,
	})
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, r)
}

func (h *ReviewHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	freelancerID := c.Param("id")
	reviews, err := h.service.List(ctx, freelancerID)
	if err != nil {
		fail(c, err)
		return
	}
	summary, err := h.service.AverageRating(ctx, freelancerID)
	if err != nil {
		fail(c, err)
		return
	}
	succeed(c, reviewListResponse{
		Reviews:       reviews,
		AverageRating: summary.AverageRating,
		ReviewCount:   summary.ReviewCount,
	})
}
