package store

import (
	"context"
	"sync"
	"sync/atomic"
)

// Subscription is a live view of one path. Close may be called any number of
// times from any goroutine, including from inside the callback.
type Subscription struct {
	path   string
	fn     func(Snapshot)
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
	// mu serialises deliveries so callbacks never overlap.
	mu sync.Mutex
}

func newSubscription(ctx context.Context, path string, fn func(Snapshot)) (*Subscription, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Subscription{
		path:   path,
		fn:     fn,
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

func (s *Subscription) Path() string {
	return s.path
}

// Done is closed once the delivery loop has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops deliveries. No callback starts after Close returns.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
}

func (s *Subscription) Closed() bool {
	return s.closed.Load()
}

func (s *Subscription) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	s.fn(snap)
}

// run drives the delivery loop until ctx ends. read fetches a fresh snapshot;
// changed yields one value per observed write.
func (s *Subscription) run(ctx context.Context, read func(context.Context) (Snapshot, error), changed <-chan struct{}, onErr func(error), cleanup func()) {
	defer close(s.done)
	defer cleanup()

	push := func() {
		snap, err := read(ctx)
		if err != nil {
			if ctx.Err() == nil && onErr != nil {
				onErr(err)
			}
			return
		}
		s.deliver(snap)
	}

	push()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changed:
			if !ok {
				return
			}
			// Snapshots are complete, so a burst of writes needs one read.
			drain(changed)
			push()
		}
	}
}

func drain(ch <-chan struct{}) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
