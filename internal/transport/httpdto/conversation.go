package httpdto

// CreateConversationRequest is used for POST /v1/conversations
type CreateConversationRequest struct {
	FreelancerID string `json:"freelancerId" binding:"required"`
}

// SendMessageRequest is used for POST /v1/conversations/:id/messages
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}
