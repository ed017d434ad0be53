package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type fakeFeed struct {
	mu     sync.Mutex
	closed int
}

func (f *fakeFeed) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakeFeed) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeFeeds struct {
	mu     sync.Mutex
	opened map[string]int
	emits  map[string]func([]byte)
	feeds  map[string]*fakeFeed
}

func newFakeFeeds() *fakeFeeds {
	return &fakeFeeds{opened: map[string]int{}, emits: map[string]func([]byte){}, feeds: map[string]*fakeFeed{}}
}

func (f *fakeFeeds) Authorize(context.Context, string, string) error { return nil }

func (f *fakeFeeds) Open(_ context.Context, topic string, emit func([]byte)) (Closer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened[topic]++
	f.emits[topic] = emit
	feed := &fakeFeed{}
	f.feeds[topic] = feed
	return feed, nil
}

func (f *fakeFeeds) feed(topic string) *fakeFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feeds[topic]
}

func (f *fakeFeeds) openCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened[topic]
}

func (f *fakeFeeds) emit(topic string, payload string) {
	f.mu.Lock()
	emit := f.emits[topic]
	f.mu.Unlock()
	emit([]byte(payload))
}

func startHub(t *testing.T, feeds Feeds) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(feeds, nil)
	go hub.Run(ctx)
	return hub
}

func newTestClient(userID string) *Client {
	return NewClient(nil, userID)
}

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("expected a message")
		return ""
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubSharesOneFeedPerTopic(t *testing.T) {
	feeds := newFakeFeeds()
	hub := startHub(t, feeds)
	a, b := newTestClient("u1"), newTestClient("u2")

	for _, c := range []*Client{a, b} {
		if err := hub.Subscribe(c, "conversation:c1"); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}
	if n := feeds.openCount("conversation:c1"); n != 1 {
		t.Fatalf("expected a single feed, opened %d", n)
	}

	feeds.emit("conversation:c1", "snap-1")
	if receive(t, a) != "snap-1" || receive(t, b) != "snap-1" {
		t.Fatal("both clients should receive the snapshot")
	}

	_ = hub.Unsubscribe(a, "conversation:c1")
	if feeds.feed("conversation:c1").closedCount() != 0 {
		t.Fatal("feed closed while a client remains")
	}
	_ = hub.Unsubscribe(b, "conversation:c1")
	if feeds.feed("conversation:c1").closedCount() != 1 {
		t.Fatal("feed should close with its last client")
	}
}

func TestHubReplaysLastSnapshotToLateJoiner(t *testing.T) {
	feeds := newFakeFeeds()
	hub := startHub(t, feeds)
	a, b := newTestClient("u1"), newTestClient("u2")

	_ = hub.Subscribe(a, "proposal:p1")
	feeds.emit("proposal:p1", "state-1")
	receive(t, a)

	_ = hub.Subscribe(b, "proposal:p1")
	if got := receive(t, b); got != "state-1" {
		t.Fatalf("late joiner should get the current state, got %q", got)
	}
}

func TestHubSwitchingConversationDropsOldTopic(t *testing.T) {
	feeds := newFakeFeeds()
	hub := startHub(t, feeds)
	c := newTestClient("u1")

	_ = hub.Subscribe(c, "conversation:c1")
	_ = hub.Subscribe(c, "proposal:p1")
	_ = hub.Subscribe(c, "conversation:c2")

	if c.IsSubscribed("conversation:c1") || !c.IsSubscribed("conversation:c2") || !c.IsSubscribed("proposal:p1") {
		t.Fatalf("unexpected topics %v", c.Topics())
	}
	if feeds.feed("conversation:c1").closedCount() != 1 {
		t.Fatal("old conversation feed should be closed")
	}

	feeds.emit("conversation:c1", "stale")
	assertSilent(t, c)
	feeds.emit("conversation:c2", "fresh")
	if got := receive(t, c); got != "fresh" {
		t.Fatalf("expected the new conversation, got %q", got)
	}
}

func TestHubUnregisterReleasesFeeds(t *testing.T) {
	feeds := newFakeFeeds()
	hub := startHub(t, feeds)
	c := newTestClient("u1")

	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	_ = hub.Subscribe(c, "proposal:p1")
	hub.Unregister(c)

	waitFor(t, func() bool {
		return hub.TopicSubscriberCount("proposal:p1") == 0 && hub.ClientCount() == 0 &&
			feeds.feed("proposal:p1").closedCount() == 1
	})
	c.SendMessage([]byte("after close"))
}

func TestParseTopic(t *testing.T) {
	for _, ok := range []string{"conversation:abc", "proposal:p-1"} {
		if _, _, err := ParseTopic(ok); err != nil {
			t.Errorf("%s: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "conversation:", "gig:1", "proposal:a/b"} {
		if _, _, err := ParseTopic(bad); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestEncodeFrame(t *testing.T) {
	raw := encodeFrame(ServerFrame{Type: FrameSubscribed, Topic: "proposal:p1"})
	var f ServerFrame
	if err := json.Unmarshal(raw, &f); err != nil || f.Type != FrameSubscribed || f.Topic != "proposal:p1" {
		t.Fatalf("unexpected frame %s", raw)
	}
}
