package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"globalgigs/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier delivers events to a single user's notification channel.
type Notifier interface {
	Notify(ctx context.Context, userID string, event Event)
}

type Handler func(ctx context.Context, event Event)

func NotificationChannel(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

// RedisNotifier publishes over Redis pub/sub. Delivery is best effort.
type RedisNotifier struct {
	client *redis.Client
	log    *logger.Logger
	now    func() time.Time
}

func NewRedisNotifier(client *redis.Client, l *logger.Logger) *RedisNotifier {
	if l == nil {
		l = logger.NewNop()
	}
	return &RedisNotifier{
		client: client,
		log:    l.With(zap.String("component", "events")),
		now:    time.Now,
	}
}

func (n *RedisNotifier) Notify(ctx context.Context, userID string, event Event) {
	if userID == "" {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = n.now().UnixMilli()
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.log.Ctx(ctx).Errorf("failed to marshal %s event: %v", event.Type, err)
		return
	}
	if err := n.client.Publish(ctx, NotificationChannel(userID), data).Err(); err != nil {
		n.log.Ctx(ctx).Warnf("failed to publish %s to %s: %v", event.Type, userID, err)
	}
}

// Subscribe forwards every event on the user's channel to handler until ctx
// ends or the returned stop function is called.
func (n *RedisNotifier) Subscribe(ctx context.Context, userID string, handler Handler) (func(), error) {
	pubsub := n.client.Subscribe(ctx, NotificationChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe notifications: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					n.log.Warnf("error unmarshaling event: %v", err)
					continue
				}
				handler(ctx, event)
			}
		}
	}()
	return cancel, nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, string, Event) {}
