package repository

import (
	"context"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/domain/review"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/store"
)

// Indexes are the equality indexes the repositories query through.
var Indexes = []store.Index{
	{Collection: domain.ConversationsPath, Field: "clientUserId"},
	{Collection: domain.ConversationsPath, Field: "freelancerUserId"},
	{Collection: domain.GigsPath, Field: "clientId"},
	{Collection: domain.GigsPath, Field: "freelancerId"},
}

type UserRepository interface {
	CreateUser(ctx context.Context, u user.User) (bool, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]any) error
}

type FreelancerRepository interface {
	CreateProfile(ctx context.Context, p user.FreelancerProfile) (bool, error)
	GetProfile(ctx context.Context, id string) (user.FreelancerProfile, error)
	ListProfiles(ctx context.Context) ([]user.FreelancerProfile, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]any) error
	// FoldRating adds one rating to the running aggregate without reading
	// any stored review.
	FoldRating(ctx context.Context, id string, rating int) (user.FreelancerProfile, error)
	SetRating(ctx context.Context, id string, fromCount, count int, sum float64) error
}

type ConversationRepository interface {
	CreateConversation(ctx context.Context, c conversation.Conversation) (bool, error)
	GetConversation(ctx context.Context, id string) (conversation.Conversation, error)
	ListConversationsBy(ctx context.Context, field, userID string) ([]conversation.Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, m conversation.Message) (conversation.Message, error)
	TouchLastMessage(ctx context.Context, conversationID, text string) error
	ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	SubscribeMessages(ctx context.Context, conversationID string, fn func([]conversation.Message)) (*store.Subscription, error)
}

type ProposalRepository interface {
	CreateProposal(ctx context.Context, p gig.Proposal) (gig.Proposal, error)
	GetProposal(ctx context.Context, id string) (gig.Proposal, error)
	// TransitionProposal moves a proposal out of from, failing with a
	// ConflictError if another writer got there first.
	TransitionProposal(ctx context.Context, id string, from, to domain.ProposalStatus, fields map[string]any) error
	MarkLapsed(ctx context.Context, id string) error
	SubscribeProposal(ctx context.Context, id string, fn func(gig.Proposal, bool)) (*store.Subscription, error)
}

type GigRepository interface {
	NewGigID() (string, error)
	CreateGig(ctx context.Context, g gig.Gig) (bool, error)
	GetGig(ctx context.Context, id string) (gig.Gig, error)
	TransitionGig(ctx context.Context, id string, from domain.GigStatus, fields map[string]any) error
	ListGigsBy(ctx context.Context, field, userID string) ([]gig.Gig, error)
}

type ReviewRepository interface {
	AddReview(ctx context.Context, r review.Review) (review.Review, error)
	ListReviews(ctx context.Context, freelancerID string) ([]review.Review, error)
}
