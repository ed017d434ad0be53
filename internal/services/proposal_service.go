package services

import (
	"context"
	"errors"
	"strings"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/events"
	"globalgigs/internal/repository"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"
)

const (
	proposalTextPrefix       = "Gig Proposal: "
	updateProposalTextPrefix = "Gig Update Proposal: "
	acceptanceTextPrefix     = "Accepted Gig: "

	declineSuperseded = "superseded"
	declineGigClosed  = "gig closed"
)

type CreateProposalInput struct {
	ConversationID string
	FreelancerID   string
	ClientID       string
	Title          string
	Description    string
	Price          float64
	UpdatedGigID   string
}

func (in CreateProposalInput) validate() error {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(in.ConversationID) == "" {
		verr.Add("conversationId", "is required")
	}
	if strings.TrimSpace(in.FreelancerID) == "" {
		verr.Add("freelancerId", "is required")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		verr.Add("clientId", "is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "cannot be empty")
	}
	if in.Price <= 0 {
		verr.Add("price", "must be greater than zero")
	}
	return verr.OrNil()
}

// ProposalService drives a proposal from Pending to Accepted or Declined.
// Acceptance is the only path that creates or revises a gig.
type ProposalService struct {
	proposals     repository.ProposalRepository
	gigs          repository.GigRepository
	conversations *ConversationService
	convRepo      repository.ConversationRepository
	participants  *ParticipantService
	notifier      events.Notifier
	log           *logger.Logger
}

func NewProposalService(
	proposals repository.ProposalRepository,
	gigs repository.GigRepository,
	convRepo repository.ConversationRepository,
	conversations *ConversationService,
	participants *ParticipantService,
	notifier events.Notifier,
	l *logger.Logger,
) *ProposalService {
	if notifier == nil {
		notifier = events.Discard{}
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &ProposalService{
		proposals:     proposals,
		gigs:          gigs,
		conversations: conversations,
		convRepo:      convRepo,
		participants:  participants,
		notifier:      notifier,
		log:           l,
	}
}

// Create stores a pending proposal and posts its card into the conversation.
// A proposal without its card is still valid and visible through Get.
func (s *ProposalService) Create(ctx context.Context, in CreateProposalInput) (gig.Proposal, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.validate(); err != nil {
		return gig.Proposal{}, err
	}

	c, err := s.convRepo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return gig.Proposal{}, err
	}
	if c.ClientUserID != in.ClientID || c.FreelancerUserID != in.FreelancerID {
		return gig.Proposal{}, apperrors.ErrForbidden
	}
	if in.UpdatedGigID != "" {
		g, err := s.gigs.GetGig(ctx, in.UpdatedGigID)
		if err != nil {
			return gig.Proposal{}, err
		}
		if g.FreelancerID != in.FreelancerID || g.ClientID != in.ClientID {
			return gig.Proposal{}, apperrors.ErrForbidden
		}
		if g.Status != domain.GigInProgress {
			return gig.Proposal{}, gigConflict(g, domain.GigInProgress)
		}
	}

	p, err := s.proposals.CreateProposal(ctx, gig.Proposal{
		ConversationID: in.ConversationID,
		FreelancerID:   in.FreelancerID,
		ClientID:       in.ClientID,
		Title:          in.Title,
		Description:    in.Description,
		Price:          in.Price,
		UpdatedGigID:   in.UpdatedGigID,
	})
	if err != nil {
		return gig.Proposal{}, err
	}
	if p.IsUpdate() {
		if err := s.holdForUpdate(ctx, p); err != nil {
			return gig.Proposal{}, err
		}
	}

	text := proposalTextPrefix + p.Title
	if p.IsUpdate() {
		text = updateProposalTextPrefix + p.Title
	}
	if _, err := s.conversations.SendMessage(ctx, p.ConversationID, conversation.Message{
		SenderID: p.FreelancerID,
		Text:     text,
		Metadata: &conversation.Metadata{Type: domain.MessageTypeGigProposal, ProposalID: p.ID},
	}); err != nil {
		s.log.Ctx(ctx).Warnf("proposal %s stored but card not posted: %v", p.ID, err)
	}

	s.notifier.Notify(ctx, p.ClientID, proposalEvent(events.EventProposalCreated, p))
	return p, nil
}

// holdForUpdate moves the gig from In Progress to Pending Update and
// records p as the one proposal allowed to settle it. A proposal that loses
// the hold is declined before anyone is told about it.
func (s *ProposalService) holdForUpdate(ctx context.Context, p gig.Proposal) error {
	err := s.gigs.TransitionGig(ctx, p.UpdatedGigID, domain.GigInProgress, map[string]any{
		"status":            string(domain.GigPendingUpdate),
		"pendingProposalId": p.ID,
	})
	if err == nil {
		return nil
	}
	if derr := s.proposals.TransitionProposal(ctx, p.ID, domain.ProposalPending, domain.ProposalDeclined, map[string]any{
		"declineReason": declineSuperseded,
	}); derr != nil {
		s.log.Ctx(ctx).Warnf("update proposal %s lost the hold on gig %s and was not declined: %v", p.ID, p.UpdatedGigID, derr)
	}
	return err
}

func (s *ProposalService) Get(ctx context.Context, id, viewerID string) (gig.Proposal, error) {
	p, err := s.proposals.GetProposal(ctx, id)
	if err != nil {
		return gig.Proposal{}, err
	}
	if viewerID != p.ClientID && viewerID != p.FreelancerID {
		return gig.Proposal{}, apperrors.ErrForbidden
	}
	return p, nil
}

// Subscribe reports the proposal now and on every change. exists is false
// while nothing is stored at the id.
func (s *ProposalService) Subscribe(ctx context.Context, id string, fn func(p gig.Proposal, exists bool)) (*store.Subscription, error) {
	if id == "" {
		return nil, apperrors.Invalid("proposalId", "is required")
	}
	return s.proposals.SubscribeProposal(ctx, id, fn)
}

// Accept claims the proposal and then materializes the gig. The claim is a
// guarded Pending to Accepted transition, so of two concurrent accepts
// exactly one proceeds and the other gets a ConflictError. If a later step
// fails the proposal stays Accepted with its gig id and ResumeAccept can
// finish the work.
func (s *ProposalService) Accept(ctx context.Context, proposalID, actorID string) (gig.Gig, error) {
	p, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return gig.Gig{}, err
	}
	if actorID != p.ClientID {
		return gig.Gig{}, apperrors.ErrForbidden
	}
	if p.Status != domain.ProposalPending {
		return gig.Gig{}, proposalConflict(p)
	}

	gigID := p.UpdatedGigID
	if p.IsUpdate() {
		g, err := s.gigs.GetGig(ctx, gigID)
		if err != nil {
			return gig.Gig{}, err
		}
		if err := heldFor(g, p); err != nil {
			return gig.Gig{}, err
		}
	} else {
		if gigID, err = s.gigs.NewGigID(); err != nil {
			return gig.Gig{}, err
		}
	}

	if err := s.proposals.TransitionProposal(ctx, p.ID, domain.ProposalPending, domain.ProposalAccepted, map[string]any{
		"gigId":      gigID,
		"acceptedAt": store.ServerTimestamp,
	}); err != nil {
		return gig.Gig{}, err
	}
	p.Status = domain.ProposalAccepted
	p.GigID = gigID

	g, err := s.materialize(ctx, p)
	if err != nil {
		s.log.Ctx(ctx).Errorf("proposal %s accepted but not completed: %v", p.ID, err)
		return gig.Gig{}, err
	}

	s.notifier.Notify(ctx, p.FreelancerID, proposalEvent(events.EventProposalAccepted, p))
	return g, nil
}

// ResumeAccept re-runs the steps after the claim of an accepted proposal.
// Every step is skipped when its effect is already present.
func (s *ProposalService) ResumeAccept(ctx context.Context, proposalID, actorID string) (gig.Gig, error) {
	p, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return gig.Gig{}, err
	}
	if actorID != p.ClientID {
		return gig.Gig{}, apperrors.ErrForbidden
	}
	if p.Status != domain.ProposalAccepted || p.TargetGigID() == "" {
		return gig.Gig{}, &apperrors.ConflictError{
			Resource: "proposal",
			ID:       p.ID,
			Expected: string(domain.ProposalAccepted),
			Actual:   string(p.Status),
		}
	}
	if p.GigID == "" {
		p.GigID = p.UpdatedGigID
	}
	return s.materialize(ctx, p)
}

// Decline closes a pending proposal without touching any gig.
func (s *ProposalService) Decline(ctx context.Context, proposalID, actorID string) (gig.Proposal, error) {
	p, err := s.proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return gig.Proposal{}, err
	}
	if actorID != p.ClientID {
		return gig.Proposal{}, apperrors.ErrForbidden
	}
	if p.Status != domain.ProposalPending {
		return gig.Proposal{}, proposalConflict(p)
	}
	if err := s.proposals.TransitionProposal(ctx, p.ID, domain.ProposalPending, domain.ProposalDeclined, nil); err != nil {
		return gig.Proposal{}, err
	}
	p.Status = domain.ProposalDeclined
	if p.IsUpdate() {
		s.releaseHold(ctx, p)
	}

	s.notifier.Notify(ctx, p.FreelancerID, proposalEvent(events.EventProposalDeclined, p))
	return p, nil
}

// dropPending declines the update a gig was waiting on when the gig closes.
// An update that was already claimed lapses when it is applied instead.
func (s *ProposalService) dropPending(ctx context.Context, g gig.Gig) {
	if g.PendingProposalID == "" {
		return
	}
	err := s.proposals.TransitionProposal(ctx, g.PendingProposalID, domain.ProposalPending, domain.ProposalDeclined, map[string]any{
		"declineReason": declineGigClosed,
	})
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		s.log.Ctx(ctx).Warnf("gig %s closed but update %s still pending: %v", g.ID, g.PendingProposalID, err)
	}
}

// releaseHold returns a gig held for p to In Progress with its old terms.
func (s *ProposalService) releaseHold(ctx context.Context, p gig.Proposal) {
	g, err := s.gigs.GetGig(ctx, p.UpdatedGigID)
	if err != nil || g.Status != domain.GigPendingUpdate || g.PendingProposalID != p.ID {
		return
	}
	if err := s.gigs.TransitionGig(ctx, g.ID, domain.GigPendingUpdate, map[string]any{
		"status":            string(domain.GigInProgress),
		"pendingProposalId": "",
	}); err != nil {
		s.log.Ctx(ctx).Warnf("declined update %s but gig %s still pending: %v", p.ID, g.ID, err)
	}
}

func (s *ProposalService) materialize(ctx context.Context, p gig.Proposal) (gig.Gig, error) {
	var (
		g   gig.Gig
		err error
	)
	if p.IsUpdate() {
		g, err = s.applyUpdate(ctx, p)
	} else {
		g, err = s.createGig(ctx, p)
	}
	if err != nil {
		return gig.Gig{}, err
	}

	if err := s.postAcceptance(ctx, p); err != nil {
		return gig.Gig{}, err
	}
	return g, nil
}

func (s *ProposalService) applyUpdate(ctx context.Context, p gig.Proposal) (gig.Gig, error) {
	g, err := s.gigs.GetGig(ctx, p.UpdatedGigID)
	if err != nil {
		return gig.Gig{}, err
	}
	if g.ProposalID == p.ID && g.Status == domain.GigInProgress {
		return g, nil
	}
	if g.Status.Terminal() {
		return gig.Gig{}, s.lapse(ctx, p, g)
	}
	if err := heldFor(g, p); err != nil {
		return gig.Gig{}, err
	}

	err = s.gigs.TransitionGig(ctx, g.ID, domain.GigPendingUpdate, map[string]any{
		"title":             p.Title,
		"description":       p.Description,
		"price":             p.Price,
		"status":            string(domain.GigInProgress),
		"proposalId":        p.ID,
		"pendingProposalId": "",
	})
	if errors.Is(err, apperrors.ErrConflict) {
		// Closed between the read and the guarded write.
		if latest, gerr := s.gigs.GetGig(ctx, g.ID); gerr == nil && latest.Status.Terminal() {
			return gig.Gig{}, s.lapse(ctx, p, latest)
		}
	}
	if err != nil {
		return gig.Gig{}, err
	}
	return s.gigs.GetGig(ctx, g.ID)
}

// lapse records that an accepted update will never apply because its gig
// closed first, and reports that as its own conflict.
func (s *ProposalService) lapse(ctx context.Context, p gig.Proposal, g gig.Gig) error {
	if !p.Lapsed {
		if err := s.proposals.MarkLapsed(ctx, p.ID); err != nil {
			s.log.Ctx(ctx).Warnf("proposal %s: mark lapsed: %v", p.ID, err)
		}
	}
	return &apperrors.ConflictError{
		Resource: "gig",
		ID:       g.ID,
		Expected: string(domain.GigPendingUpdate),
		Actual:   string(g.Status),
		Reason:   "was " + strings.ToLower(string(g.Status)) + " before the update applied",
	}
}

func (s *ProposalService) createGig(ctx context.Context, p gig.Proposal) (gig.Gig, error) {
	existing, err := s.gigs.GetGig(ctx, p.GigID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return gig.Gig{}, err
	}

	client := s.participants.Resolve(ctx, p.ClientID)
	freelancer := s.participants.Resolve(ctx, p.FreelancerID)
	conv, err := s.conversations.FindOrCreate(ctx, p.ClientID, p.FreelancerID)
	if err != nil {
		return gig.Gig{}, err
	}

	g := gig.Gig{
		ID:             p.GigID,
		Title:          p.Title,
		Description:    p.Description,
		Price:          p.Price,
		Status:         domain.GigInProgress,
		ClientID:       p.ClientID,
		FreelancerID:   p.FreelancerID,
		Client:         &client,
		Freelancer:     &freelancer,
		ConversationID: conv.ID,
		ProposalID:     p.ID,
	}
	if _, err := s.gigs.CreateGig(ctx, g); err != nil {
		return gig.Gig{}, err
	}
	return s.gigs.GetGig(ctx, g.ID)
}

func (s *ProposalService) postAcceptance(ctx context.Context, p gig.Proposal) error {
	msgs, err := s.convRepo.ListMessages(ctx, p.ConversationID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.Metadata != nil && m.Metadata.Type == domain.MessageTypeGigAcceptance && m.Metadata.ProposalID == p.ID {
			return nil
		}
	}
	_, err = s.conversations.SendMessage(ctx, p.ConversationID, conversation.Message{
		SenderID: p.ClientID,
		Text:     acceptanceTextPrefix + p.Title,
		Metadata: &conversation.Metadata{Type: domain.MessageTypeGigAcceptance, ProposalID: p.ID},
	})
	return err
}

func proposalConflict(p gig.Proposal) error {
	return &apperrors.ConflictError{
		Resource: "proposal",
		ID:       p.ID,
		Expected: string(domain.ProposalPending),
		Actual:   string(p.Status),
	}
}

// heldFor checks that g is waiting on exactly this update proposal.
func heldFor(g gig.Gig, p gig.Proposal) error {
	if g.Status == domain.GigPendingUpdate && g.PendingProposalID == p.ID {
		return nil
	}
	if g.Status == domain.GigPendingUpdate {
		return &apperrors.ConflictError{
			Resource: "proposal",
			ID:       p.ID,
			Reason:   "was superseded by another update to gig " + g.ID,
		}
	}
	return gigConflict(g, domain.GigPendingUpdate)
}

func gigConflict(g gig.Gig, expected domain.GigStatus) error {
	return &apperrors.ConflictError{
		Resource: "gig",
		ID:       g.ID,
		Expected: string(expected),
		Actual:   string(g.Status),
	}
}

func proposalEvent(kind string, p gig.Proposal) events.Event {
	return events.Event{
		Type: kind,
		Payload: events.ProposalPayload{
			ProposalID:     p.ID,
			ConversationID: p.ConversationID,
			Title:          p.Title,
			Status:         string(p.Status),
			GigID:          p.GigID,
		},
	}
}
