package httpdto

// CreateProposalRequest is used for POST /v1/proposals. UpdatedGigID is set
// when the proposal revises an existing gig.
type CreateProposalRequest struct {
	ConversationID string  `json:"conversationId" binding:"required"`
	ClientID       string  `json:"clientId" binding:"required"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Price          float64 `json:"price"`
	UpdatedGigID   string  `json:"updatedGigId,omitempty"`
}

// EditGigRequest is used for PATCH /v1/gigs/:id
type EditGigRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// CreateReviewRequest is used for POST /v1/freelancers/:id/reviews
type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
