package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"globalgigs/internal/events"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NotificationSource streams a user's notification events.
type NotificationSource interface {
	Subscribe(ctx context.Context, userID string, handler events.Handler) (func(), error)
}

type Handler struct {
	auth          *services.AuthService
	hub           *Hub
	feeds         Feeds
	notifications NotificationSource
	log           *logger.Logger
	upgrader      websocket.Upgrader
}

func NewHandler(auth *services.AuthService, hub *Hub, feeds Feeds, notifications NotificationSource, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.NewNop()
	}
	return &Handler{
		auth:          auth,
		hub:           hub,
		feeds:         feeds,
		notifications: notifications,
		log:           l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Connect(c *gin.Context) {
	claims, err := h.auth.ParseAccessToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", apperrors.CodeUnauthorized))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	userID := claims.Subject
	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	if h.notifications != nil {
		stop, err := h.notifications.Subscribe(ctx, userID, func(_ context.Context, event events.Event) {
			client.SendMessage(encodeFrame(ServerFrame{Type: FrameNotification, Data: event}))
		})
		if err != nil {
			h.log.Warnf("ws: notifications for %s unavailable: %v", userID, err)
		} else {
			defer stop()
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.handleFrame(ctx, client, raw)
	}

	h.hub.Unregister(client)
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		client.SendMessage(encodeFrame(ServerFrame{Type: FrameError, Error: "malformed frame"}))
		return
	}
	if _, _, err := ParseTopic(frame.Topic); err != nil {
		client.SendMessage(encodeFrame(ServerFrame{Type: FrameError, Topic: frame.Topic, Error: apperrors.Message(err)}))
		return
	}

	switch frame.Action {
	case ActionSubscribe:
		if err := h.feeds.Authorize(ctx, client.UserID, frame.Topic); err != nil {
			client.SendMessage(encodeFrame(ServerFrame{Type: FrameError, Topic: frame.Topic, Error: apperrors.Message(err)}))
			return
		}
		if err := h.hub.Subscribe(client, frame.Topic); err != nil {
			h.log.Warnf("ws: subscribe %s to %s: %v", client.ID, frame.Topic, err)
			client.SendMessage(encodeFrame(ServerFrame{Type: FrameError, Topic: frame.Topic, Error: apperrors.Message(err)}))
			return
		}
		client.SendMessage(encodeFrame(ServerFrame{Type: FrameSubscribed, Topic: frame.Topic}))
	case ActionUnsubscribe:
		if err := h.hub.Unsubscribe(client, frame.Topic); err == nil {
			client.SendMessage(encodeFrame(ServerFrame{Type: FrameUnsubscribed, Topic: frame.Topic}))
		}
	default:
		client.SendMessage(encodeFrame(ServerFrame{Type: FrameError, Topic: frame.Topic, Error: "unknown action"}))
	}
}
