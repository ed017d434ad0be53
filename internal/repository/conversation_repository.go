package repository

import (
	"context"
	"errors"
	"sort"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"
)

type StoreConversationRepository struct {
	st store.Store
}

func NewConversationRepository(st store.Store) ConversationRepository {
	return &StoreConversationRepository{st: st}
}

func conversationPath(id string) string {
	return store.Join(domain.ConversationsPath, id)
}

func messagesPath(conversationID string) string {
	return store.Join(domain.ConversationsPath, conversationID, domain.MessagesSegment)
}

// CreateConversation writes the header only if the id is still free. The
// derived participant field is never stored.
func (r *StoreConversationRepository) CreateConversation(ctx context.Context, c conversation.Conversation) (bool, error) {
	fields, err := toFields(c, "participant")
	if err != nil {
		return false, err
	}
	fields["lastMessageTimestamp"] = store.ServerTimestamp
	return r.st.Create(ctx, conversationPath(c.ID), fields)
}

func (r *StoreConversationRepository) GetConversation(ctx context.Context, id string) (conversation.Conversation, error) {
	c, err := store.GetAs[conversation.Conversation](ctx, r.st, conversationPath(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return conversation.Conversation{}, apperrors.NotFound("conversation", id)
		}
		return conversation.Conversation{}, err
	}
	c.ID = id
	c.Participant = nil
	return c, nil
}

func (r *StoreConversationRepository) ListConversationsBy(ctx context.Context, field, userID string) ([]conversation.Conversation, error) {
	nodes, err := r.st.QueryEqual(ctx, domain.ConversationsPath, field, userID)
	if err != nil {
		return nil, err
	}
	return decodeNodes(nodes, func(c *conversation.Conversation, id string) {
		c.ID = id
		c.Participant = nil
	}), nil
}

// AppendMessage pushes the message with a server timestamp and reads it back
// so the caller sees the assigned id and time.
func (r *StoreConversationRepository) AppendMessage(ctx context.Context, conversationID string, m conversation.Message) (conversation.Message, error) {
	fields, err := toFields(m, "id")
	if err != nil {
		return conversation.Message{}, err
	}
	fields["timestamp"] = store.ServerTimestamp

	id, err := r.st.Push(ctx, messagesPath(conversationID), fields)
	if err != nil {
		return conversation.Message{}, err
	}
	stored, err := store.GetAs[conversation.Message](ctx, r.st, store.Join(messagesPath(conversationID), id))
	if err != nil {
		// The write landed; fall back to what we sent.
		m.ID = id
		return m, nil
	}
	stored.ID = id
	return stored, nil
}

func (r *StoreConversationRepository) TouchLastMessage(ctx context.Context, conversationID, text string) error {
	return r.st.Update(ctx, conversationPath(conversationID), map[string]any{
		"lastMessage":          text,
		"lastMessageTimestamp": store.ServerTimestamp,
	})
}

func (r *StoreConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	nodes, err := r.st.Children(ctx, messagesPath(conversationID))
	if err != nil {
		return nil, err
	}
	return orderMessages(nodes), nil
}

func (r *StoreConversationRepository) SubscribeMessages(ctx context.Context, conversationID string, fn func([]conversation.Message)) (*store.Subscription, error) {
	return r.st.Subscribe(ctx, messagesPath(conversationID), func(snap store.Snapshot) {
		fn(orderMessages(snap.Children))
	})
}

// orderMessages sorts by server timestamp, then by push id.
func orderMessages(nodes []store.Node) []conversation.Message {
	msgs := decodeNodes(nodes, func(m *conversation.Message, id string) { m.ID = id })
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs
}
