package conversation

import (
	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
)

// Conversation is the header stored at conversations/{id}. Participant is
// computed per request relative to the viewer and never stored.
type Conversation struct {
	ID                   string            `json:"id"`
	ClientUserID         string            `json:"clientUserId"`
	FreelancerUserID     string            `json:"freelancerUserId"`
	LastMessage          string            `json:"lastMessage"`
	LastMessageTimestamp int64             `json:"lastMessageTimestamp"`
	Client               *user.Participant `json:"client,omitempty"`
	Freelancer           *user.Participant `json:"freelancer,omitempty"`
	Participant          *user.Participant `json:"participant,omitempty"`
}

// OtherParty returns the id of the party that is not viewerID.
func (c Conversation) OtherParty(viewerID string) string {
	if viewerID == c.ClientUserID {
		return c.FreelancerUserID
	}
	return c.ClientUserID
}

func (c Conversation) HasParty(userID string) bool {
	return userID != "" && (userID == c.ClientUserID || userID == c.FreelancerUserID)
}

type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp int64     `json:"timestamp"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// Metadata lets a client render a proposal card instead of plain text.
type Metadata struct {
	Type       domain.MessageType `json:"type"`
	ProposalID string             `json:"proposalId,omitempty"`
}
