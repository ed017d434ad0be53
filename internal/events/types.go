package events

// Event types follow the domain.action format.
const (
	EventMessageCreated   = "message.created"
	EventProposalCreated  = "proposal.created"
	EventProposalAccepted = "proposal.accepted"
	EventProposalDeclined = "proposal.declined"
	EventGigUpdated       = "gig.updated"
	EventGigCompleted     = "gig.completed"
	EventGigCancelled     = "gig.cancelled"
	EventReviewCreated    = "review.created"
)

type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

type MessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	Text           string `json:"text"`
}

type ProposalPayload struct {
	ProposalID     string `json:"proposalId"`
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	GigID          string `json:"gigId,omitempty"`
}

type GigPayload struct {
	GigID  string `json:"gigId"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type ReviewPayload struct {
	ReviewID     string `json:"reviewId"`
	FreelancerID string `json:"freelancerId"`
	Rating       int    `json:"rating"`
}
