package websocket

import (
	"context"
	"sync"

	"globalgigs/pkg/logger"
)

type subscriptionRequest struct {
	client    *Client
	topic     string
	subscribe bool
	done      chan error
}

// topicFeed is the single store subscription behind a topic, shared by all
// clients watching it. last is replayed to clients that join later.
type topicFeed struct {
	clients map[*Client]struct{}
	closer  Closer
	last    []byte
}

// Hub fans topic snapshots out to websocket clients. Registration and
// subscription changes are serialized through Run.
type Hub struct {
	mu sync.RWMutex

	clients map[string]*Client
	topics  map[string]*topicFeed

	feeds Feeds
	log   *logger.Logger
	ctx   context.Context

	register     chan *Client
	unregister   chan *Client
	subscription chan subscriptionRequest
	stopped      chan struct{}
}

func NewHub(feeds Feeds, l *logger.Logger) *Hub {
	if l == nil {
		l = logger.NewNop()
	}
	return &Hub{
		clients:      make(map[string]*Client),
		topics:       make(map[string]*topicFeed),
		feeds:        feeds,
		log:          l,
		ctx:          context.Background(),
		register:     make(chan *Client, 256),
		unregister:   make(chan *Client, 256),
		subscription: make(chan subscriptionRequest, 512),
		stopped:      make(chan struct{}),
	}
}

// Run processes hub events until ctx ends, then closes every open feed.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.subscription:
			var err error
			if req.subscribe {
				err = h.subscribeToTopic(req.client, req.topic)
			} else {
				h.unsubscribeFromTopic(req.client, req.topic)
			}
			req.done <- err
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe attaches client to topic and returns once the change is applied.
// Subscribing to a conversation detaches the previous one first.
func (h *Hub) Subscribe(client *Client, topic string) error {
	return h.request(subscriptionRequest{client: client, topic: topic, subscribe: true})
}

func (h *Hub) Unsubscribe(client *Client, topic string) error {
	return h.request(subscriptionRequest{client: client, topic: topic})
}

func (h *Hub) request(req subscriptionRequest) error {
	req.done = make(chan error, 1)
	select {
	case h.subscription <- req:
	case <-h.stopped:
		return context.Canceled
	}
	select {
	case err := <-req.done:
		return err
	case <-h.stopped:
		return context.Canceled
	}
}

// Broadcast sends payload to every client on topic and remembers it for
// clients that join later.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.Lock()
	feed, ok := h.topics[topic]
	if ok {
		feed.last = payload
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.mu.RLock()
	for c := range feed.clients {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

// SendToUser delivers payload to every connection of userID.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.mu.RLock()
	for _, client := range h.clients {
		if client.UserID == userID {
			client.SendMessage(payload)
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TopicSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if feed, ok := h.topics[topic]; ok {
		return len(feed.clients)
	}
	return 0
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	for _, topic := range client.Topics() {
		h.unsubscribeFromTopic(client, topic)
	}
	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	client.closeSend()
}

func (h *Hub) subscribeToTopic(client *Client, topic string) error {
	if client.IsSubscribed(topic) {
		return nil
	}
	if isConversationTopic(topic) {
		if current := client.ConversationTopic(); current != "" {
			h.unsubscribeFromTopic(client, current)
		}
	}

	h.mu.RLock()
	feed, ok := h.topics[topic]
	h.mu.RUnlock()

	if !ok {
		// Opened without the lock: the first snapshot may arrive through
		// Broadcast before Open returns.
		h.mu.Lock()
		feed = &topicFeed{clients: make(map[*Client]struct{})}
		h.topics[topic] = feed
		h.mu.Unlock()

		closer, err := h.feeds.Open(h.ctx, topic, func(payload []byte) {
			h.Broadcast(topic, payload)
		})
		if err != nil {
			h.mu.Lock()
			delete(h.topics, topic)
			h.mu.Unlock()
			return err
		}
		feed.closer = closer
	}

	h.mu.Lock()
	feed.clients[client] = struct{}{}
	last := feed.last
	h.mu.Unlock()
	client.addTopic(topic)

	if last != nil {
		client.SendMessage(last)
	}
	return nil
}

func (h *Hub) unsubscribeFromTopic(client *Client, topic string) {
	client.removeTopic(topic)

	h.mu.Lock()
	feed, ok := h.topics[topic]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(feed.clients, client)
	empty := len(feed.clients) == 0
	if empty {
		delete(h.topics, topic)
	}
	h.mu.Unlock()

	if empty && feed.closer != nil {
		feed.closer.Close()
	}
}

func (h *Hub) shutdown() {
	close(h.stopped)
	h.mu.Lock()
	feeds := make([]*topicFeed, 0, len(h.topics))
	for topic, feed := range h.topics {
		feeds = append(feeds, feed)
		delete(h.topics, topic)
	}
	h.mu.Unlock()
	for _, feed := range feeds {
		if feed.closer != nil {
			feed.closer.Close()
		}
	}
}
