package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/events"
	"globalgigs/internal/repository"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"golang.org/x/crypto/blake2b"
)

const conversationStartedText = "Conversation started"

// ConversationID derives the id of the conversation between two users. The
// result does not depend on argument order.
func ConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	return hex.EncodeToString(h.Sum(nil))
}

type ConversationService struct {
	repo         repository.ConversationRepository
	participants *ParticipantService
	notifier     events.Notifier
	log          *logger.Logger
	now          func() time.Time
}

func NewConversationService(repo repository.ConversationRepository, participants *ParticipantService, notifier events.Notifier, l *logger.Logger) *ConversationService {
	if notifier == nil {
		notifier = events.Discard{}
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &ConversationService{repo: repo, participants: participants, notifier: notifier, log: l, now: time.Now}
}

// FindOrCreate returns the single conversation of the pair, creating it on
// first contact. Concurrent callers converge on the same document.
func (s *ConversationService) FindOrCreate(ctx context.Context, clientID, freelancerID string) (conversation.Conversation, error) {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(clientID) == "" {
		verr.Add("clientUserId", "is required")
	}
	if strings.TrimSpace(freelancerID) == "" {
		verr.Add("freelancerUserId", "is required")
	}
	if clientID != "" && clientID == freelancerID {
		verr.Add("freelancerUserId", "must differ from the client")
	}
	if err := verr.OrNil(); err != nil {
		return conversation.Conversation{}, err
	}

	id := ConversationID(clientID, freelancerID)
	client := s.participants.Resolve(ctx, clientID)
	freelancer := s.participants.Resolve(ctx, freelancerID)

	c := conversation.Conversation{
		ID:               id,
		ClientUserID:     clientID,
		FreelancerUserID: freelancerID,
		LastMessage:      conversationStartedText,
		Client:           &client,
		Freelancer:       &freelancer,
	}
	created, err := s.repo.CreateConversation(ctx, c)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if created {
		s.log.Ctx(ctx).Infof("conversation %s created", id)
	}

	stored, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		if created {
			c.LastMessageTimestamp = s.now().UnixMilli()
			c.Participant = &freelancer
			return c, nil
		}
		return conversation.Conversation{}, err
	}
	stored.Participant = &freelancer
	return stored, nil
}

// Get returns the conversation decorated with the other party of viewerID.
func (s *ConversationService) Get(ctx context.Context, id, viewerID string) (conversation.Conversation, error) {
	c, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if !c.HasParty(viewerID) {
		return conversation.Conversation{}, apperrors.ErrForbidden
	}
	other := s.participants.Resolve(ctx, c.OtherParty(viewerID))
	c.Participant = &other
	return c, nil
}

// ListForUser returns the user's conversations, most recent activity first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string, role domain.Role) ([]conversation.Conversation, error) {
	if userID == "" {
		return nil, apperrors.Invalid("userId", "is required")
	}
	field := "clientUserId"
	if role == domain.RoleFreelancer {
		field = "freelancerUserId"
	}
	convs, err := s.repo.ListConversationsBy(ctx, field, userID)
	if err != nil {
		return nil, err
	}

	for i := range convs {
		other := s.participants.Resolve(ctx, convs[i].OtherParty(userID))
		convs[i].Participant = &other
	}

	now := s.now().UnixMilli()
	recency := func(c conversation.Conversation) int64 {
		if c.LastMessageTimestamp <= 0 {
			return now
		}
		return c.LastMessageTimestamp
	}
	sort.SliceStable(convs, func(i, j int) bool {
		ri, rj := recency(convs[i]), recency(convs[j])
		if ri != rj {
			return ri > rj
		}
		return convs[i].ID < convs[j].ID
	})
	return convs, nil
}

// SendMessage appends m and refreshes the conversation preview. The two writes
// are independent; a lagging preview is fixed by the next send.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID string, m conversation.Message) (conversation.Message, error) {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(m.SenderID) == "" {
		verr.Add("senderId", "is required")
	}
	if strings.TrimSpace(m.Text) == "" {
		verr.Add("text", "cannot be empty")
	}
	if err := verr.OrNil(); err != nil {
		return conversation.Message{}, err
	}

	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return conversation.Message{}, err
	}
	if !c.HasParty(m.SenderID) {
		return conversation.Message{}, apperrors.ErrForbidden
	}

	stored, err := s.repo.AppendMessage(ctx, conversationID, m)
	if err != nil {
		return conversation.Message{}, err
	}
	if err := s.repo.TouchLastMessage(ctx, conversationID, m.Text); err != nil {
		s.log.Ctx(ctx).Warnf("conversation %s preview not updated: %v", conversationID, err)
	}

	s.notifier.Notify(ctx, c.OtherParty(m.SenderID), events.Event{
		Type: events.EventMessageCreated,
		Payload: events.MessagePayload{
			ConversationID: conversationID,
			MessageID:      stored.ID,
			SenderID:       stored.SenderID,
			Text:           stored.Text,
		},
	})
	return stored, nil
}

// Messages returns the conversation's messages in send order.
func (s *ConversationService) Messages(ctx context.Context, conversationID, viewerID string) ([]conversation.Message, error) {
	if err := s.Authorize(ctx, conversationID, viewerID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID)
}

// Subscribe delivers the complete ordered message list now and after every
// change. Closing the subscription more than once is harmless.
func (s *ConversationService) Subscribe(ctx context.Context, conversationID string, fn func([]conversation.Message)) (*store.Subscription, error) {
	if conversationID == "" {
		return nil, apperrors.Invalid("conversationId", "is required")
	}
	return s.repo.SubscribeMessages(ctx, conversationID, fn)
}

// Authorize fails unless userID is a party of the conversation.
func (s *ConversationService) Authorize(ctx context.Context, conversationID, userID string) error {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !c.HasParty(userID) {
		return apperrors.ErrForbidden
	}
	return nil
}
