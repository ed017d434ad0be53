package websocket

import (
	"context"
	"encoding/json"
	"strings"

	"globalgigs/internal/domain/conversation"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/services"
	apperrors "globalgigs/pkg/errors"
)

const (
	TopicPrefixConversation = "conversation:"
	TopicPrefixProposal     = "proposal:"
)

// ParseTopic splits a topic into its kind prefix and id.
func ParseTopic(topic string) (prefix, id string, err error) {
	for _, p := range []string{TopicPrefixConversation, TopicPrefixProposal} {
		if strings.HasPrefix(topic, p) {
			id = strings.TrimPrefix(topic, p)
			if id == "" || strings.Contains(id, "/") {
				break
			}
			return p, id, nil
		}
	}
	return "", "", apperrors.Invalid("topic", "must be conversation:<id> or proposal:<id>")
}

func isConversationTopic(topic string) bool {
	return strings.HasPrefix(topic, TopicPrefixConversation)
}

// Closer ends a live feed. Calling it more than once is harmless.
type Closer interface {
	Close()
}

// Feeds opens one live store subscription per topic and checks who may
// watch it.
type Feeds interface {
	Authorize(ctx context.Context, userID, topic string) error
	Open(ctx context.Context, topic string, emit func(payload []byte)) (Closer, error)
}

// ServiceFeeds serves topics from the conversation and proposal services.
type ServiceFeeds struct {
	conversations *services.ConversationService
	proposals     *services.ProposalService
}

func NewServiceFeeds(conversations *services.ConversationService, proposals *services.ProposalService) *ServiceFeeds {
	return &ServiceFeeds{conversations: conversations, proposals: proposals}
}

func (f *ServiceFeeds) Authorize(ctx context.Context, userID, topic string) error {
	prefix, id, err := ParseTopic(topic)
	if err != nil {
		return err
	}
	if prefix == TopicPrefixConversation {
		return f.conversations.Authorize(ctx, id, userID)
	}
	_, err = f.proposals.Get(ctx, id, userID)
	return err
}

func (f *ServiceFeeds) Open(ctx context.Context, topic string, emit func([]byte)) (Closer, error) {
	prefix, id, err := ParseTopic(topic)
	if err != nil {
		return nil, err
	}
	if prefix == TopicPrefixConversation {
		sub, err := f.conversations.Subscribe(ctx, id, func(msgs []conversation.Message) {
			emit(encodeFrame(ServerFrame{Type: FrameMessages, Topic: topic, Data: msgs}))
		})
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
	sub, err := f.proposals.Subscribe(ctx, id, func(p gig.Proposal, exists bool) {
		if !exists {
			return
		}
		emit(encodeFrame(ServerFrame{Type: FrameProposal, Topic: topic, Data: p}))
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Frame types sent to clients.
const (
	FrameMessages     = "messages"
	FrameProposal     = "proposal"
	FrameNotification = "notification"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameError        = "error"
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

type ClientFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type ServerFrame struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func encodeFrame(f ServerFrame) []byte {
	raw, err := json.Marshal(f)
	if err != nil {
		raw, _ = json.Marshal(ServerFrame{Type: FrameError, Topic: f.Topic, Error: "encode failed"})
	}
	return raw
}
