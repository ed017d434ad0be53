package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/events"
	"globalgigs/internal/repository"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"
)

type EditGigInput struct {
	Title       string
	Description string
	Price       float64
}

// EditResult carries the gig after an edit and, for a price change, the
// proposal the client has to accept before the new price applies.
type EditResult struct {
	Gig      gig.Gig
	Proposal *gig.Proposal
}

// GigService manages gig status after creation. Completed and Cancelled are
// final; no operation leaves them.
type GigService struct {
	gigs          repository.GigRepository
	proposals     *ProposalService
	conversations *ConversationService
	notifier      events.Notifier
	log           *logger.Logger
}

func NewGigService(gigs repository.GigRepository, proposals *ProposalService, conversations *ConversationService, notifier events.Notifier, l *logger.Logger) *GigService {
	if notifier == nil {
		notifier = events.Discard{}
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &GigService{gigs: gigs, proposals: proposals, conversations: conversations, notifier: notifier, log: l}
}

func (s *GigService) Get(ctx context.Context, id, viewerID string) (gig.Gig, error) {
	g, err := s.gigs.GetGig(ctx, id)
	if err != nil {
		return gig.Gig{}, err
	}
	if !g.HasParty(viewerID) {
		return gig.Gig{}, apperrors.ErrForbidden
	}
	return g, nil
}

// Edit rewrites wording in place. A different price is never written here:
// it becomes an update proposal, and creating that proposal is what puts the
// gig in Pending Update.
func (s *GigService) Edit(ctx context.Context, gigID, actorID string, in EditGigInput) (EditResult, error) {
	g, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		return EditResult{}, err
	}
	if actorID != g.FreelancerID {
		return EditResult{}, apperrors.ErrForbidden
	}
	if g.Status.Terminal() || g.Status == domain.GigPendingUpdate {
		return EditResult{}, gigConflict(g, domain.GigInProgress)
	}

	in.Title = strings.TrimSpace(in.Title)
	verr := &apperrors.ValidationError{}
	if in.Title == "" {
		verr.Add("title", "cannot be empty")
	}
	if in.Price <= 0 {
		verr.Add("price", "must be greater than zero")
	}
	if err := verr.OrNil(); err != nil {
		return EditResult{}, err
	}

	if in.Price == g.Price {
		if err := s.gigs.TransitionGig(ctx, g.ID, g.Status, map[string]any{
			"title":       in.Title,
			"description": in.Description,
		}); err != nil {
			return EditResult{}, err
		}
		updated, err := s.gigs.GetGig(ctx, g.ID)
		if err != nil {
			return EditResult{}, err
		}
		s.notifyParties(ctx, updated, events.EventGigUpdated, actorID)
		return EditResult{Gig: updated}, nil
	}

	conversationID := g.ConversationID
	if conversationID == "" {
		c, err := s.conversations.FindOrCreate(ctx, g.ClientID, g.FreelancerID)
		if err != nil {
			return EditResult{}, err
		}
		conversationID = c.ID
	}

	p, err := s.proposals.Create(ctx, CreateProposalInput{
		ConversationID: conversationID,
		FreelancerID:   g.FreelancerID,
		ClientID:       g.ClientID,
		Title:          in.Title,
		Description:    in.Description,
		Price:          in.Price,
		UpdatedGigID:   g.ID,
	})
	if err != nil {
		return EditResult{}, err
	}
	updated, err := s.gigs.GetGig(ctx, g.ID)
	if err != nil {
		return EditResult{}, err
	}
	s.notifyParties(ctx, updated, events.EventGigUpdated, actorID)
	return EditResult{Gig: updated, Proposal: &p}, nil
}

func (s *GigService) Complete(ctx context.Context, gigID, actorID string) (gig.Gig, error) {
	return s.finish(ctx, gigID, actorID, domain.GigCompleted)
}

func (s *GigService) Cancel(ctx context.Context, gigID, actorID string) (gig.Gig, error) {
	return s.finish(ctx, gigID, actorID, domain.GigCancelled)
}

func (s *GigService) finish(ctx context.Context, gigID, actorID string, to domain.GigStatus) (gig.Gig, error) {
	g, err := s.gigs.GetGig(ctx, gigID)
	if err != nil {
		return gig.Gig{}, err
	}
	if !g.HasParty(actorID) {
		return gig.Gig{}, apperrors.ErrForbidden
	}
	if !canFinish(g.Status, to) {
		return gig.Gig{}, gigConflict(g, domain.GigInProgress)
	}

	if err := s.gigs.TransitionGig(ctx, g.ID, g.Status, map[string]any{
		"status":            string(to),
		"pendingProposalId": "",
	}); err != nil {
		return gig.Gig{}, err
	}
	g.Status = to
	s.proposals.dropPending(ctx, g)

	if g.ConversationID != "" {
		if _, err := s.conversations.SendMessage(ctx, g.ConversationID, conversation.Message{
			SenderID: g.FreelancerID,
			Text:     finishText(g.Title, to),
		}); err != nil {
			s.log.Ctx(ctx).Warnf("gig %s %s but message not posted: %v", g.ID, strings.ToLower(string(to)), err)
		}
	}

	kind := events.EventGigCompleted
	if to == domain.GigCancelled {
		kind = events.EventGigCancelled
	}
	s.notifyParties(ctx, g, kind, actorID)

	if updated, err := s.gigs.GetGig(ctx, g.ID); err == nil {
		return updated, nil
	}
	return g, nil
}

func canFinish(from, to domain.GigStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == domain.GigCompleted {
		return from == domain.GigInProgress
	}
	return true
}

func finishText(title string, to domain.GigStatus) string {
	if to == domain.GigCompleted {
		return fmt.Sprintf("I have marked the gig \"%s\" as complete. Please let me know if you have any feedback!", title)
	}
	return fmt.Sprintf("I have cancelled the gig: \"%s\". Please let me know if you have any questions.", title)
}

// ListForUser returns every gig where the user is either party, newest first.
func (s *GigService) ListForUser(ctx context.Context, userID string) ([]gig.Gig, error) {
	if userID == "" {
		return nil, apperrors.Invalid("userId", "is required")
	}
	asClient, err := s.gigs.ListGigsBy(ctx, "clientId", userID)
	if err != nil {
		return nil, err
	}
	asFreelancer, err := s.gigs.ListGigsBy(ctx, "freelancerId", userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(asClient)+len(asFreelancer))
	out := make([]gig.Gig, 0, len(asClient)+len(asFreelancer))
	for _, g := range append(asClient, asFreelancer...) {
		if _, ok := seen[g.ID]; ok {
			continue
		}
		seen[g.ID] = struct{}{}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *GigService) notifyParties(ctx context.Context, g gig.Gig, kind, actorID string) {
	event := events.Event{
		Type:    kind,
		Payload: events.GigPayload{GigID: g.ID, Title: g.Title, Status: string(g.Status)},
	}
	for _, uid := range []string{g.ClientID, g.FreelancerID} {
		if uid != actorID {
			s.notifier.Notify(ctx, uid, event)
		}
	}
}
