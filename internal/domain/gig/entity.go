package gig

import (
	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
)

// Proposal is an offer sent by a freelancer inside a conversation.
// UpdatedGigID marks a revision of an existing gig.
type Proposal struct {
	ID             string                `json:"id"`
	ConversationID string                `json:"conversationId"`
	FreelancerID   string                `json:"freelancerId"`
	ClientID       string                `json:"clientId"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Price          float64               `json:"price"`
	Status         domain.ProposalStatus `json:"status"`
	CreatedAt      int64                 `json:"createdAt"`
	UpdatedGigID   string                `json:"updatedGigId,omitempty"`
	GigID          string                `json:"gigId,omitempty"`
	AcceptedAt     int64                 `json:"acceptedAt,omitempty"`
	ResolvedAt     int64                 `json:"resolvedAt,omitempty"`
	DeclineReason  string                `json:"declineReason,omitempty"`
	// Lapsed is set on an accepted update whose gig closed before the new
	// terms were written. The gig keeps its previous terms.
	Lapsed bool `json:"lapsed,omitempty"`
}

func (p Proposal) IsUpdate() bool {
	return p.UpdatedGigID != ""
}

// TargetGigID is the gig this proposal creates or revises once accepted.
func (p Proposal) TargetGigID() string {
	if p.UpdatedGigID != "" {
		return p.UpdatedGigID
	}
	return p.GigID
}

type Gig struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	Status         domain.GigStatus  `json:"status"`
	ClientID       string            `json:"clientId"`
	FreelancerID   string            `json:"freelancerId"`
	Client         *user.Participant `json:"client,omitempty"`
	Freelancer     *user.Participant `json:"freelancer,omitempty"`
	CreatedAt      int64             `json:"createdAt"`
	UpdatedAt      int64             `json:"updatedAt,omitempty"`
	ConversationID string            `json:"conversationId,omitempty"`
	ProposalID     string            `json:"proposalId,omitempty"`
	// PendingProposalID is the only update proposal that can settle a gig
	// in Pending Update.
	PendingProposalID string `json:"pendingProposalId,omitempty"`
}

func (g Gig) HasParty(userID string) bool {
	return userID != "" && (userID == g.ClientID || userID == g.FreelancerID)
}
