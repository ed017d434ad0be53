package httpdto

import (
	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
)

// CreateUserRequest records a signup from the identity provider.
type CreateUserRequest struct {
	Email string      `json:"email" binding:"required"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role" binding:"required"`
}

// UpdateUserRequest is used for PATCH /v1/users/me
type UpdateUserRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// UpdateProfileRequest is used for PATCH /v1/freelancers/me. Omitted
// fields keep their value.
type UpdateProfileRequest struct {
	Name         *string              `json:"name,omitempty"`
	Role         *string              `json:"role,omitempty"`
	Category     *string              `json:"category,omitempty"`
	Rate         *float64             `json:"rate,omitempty"`
	Location     *string              `json:"location,omitempty"`
	Bio          *string              `json:"bio,omitempty"`
	Skills       []string             `json:"skills,omitempty"`
	Experience   []user.Experience    `json:"experience,omitempty"`
	Availability *domain.Availability `json:"availability,omitempty"`
}

type PortfolioItemRequest struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ImageURLs        []string `json:"imageUrls"`
	TechnologiesUsed string   `json:"technologiesUsed"`
}

// UpdatePortfolioRequest is used for PUT /v1/freelancers/me/portfolio
type UpdatePortfolioRequest struct {
	Items []PortfolioItemRequest `json:"items"`
}

// PresignUploadRequest is used for POST /v1/uploads/presign
type PresignUploadRequest struct {
	Kind        string `json:"kind" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size"`
}
