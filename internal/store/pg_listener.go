package store

import (
	"context"
	"sync"
	"time"

	"globalgigs/pkg/logger"

	"github.com/jackc/pgx/v5"
)

const (
	listenRetryMin = 250 * time.Millisecond
	listenRetryMax = 10 * time.Second
)

// pgListener owns one connection outside the pool that LISTENs on
// notifyChannel and fans each written path out to the subscriptions covering
// it. Subscriptions never hold a pooled connection.
type pgListener struct {
	connConfig *pgx.ConnConfig
	log        *logger.Logger

	mu      sync.Mutex
	subs    map[uint64]listenEntry
	nextID  uint64
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type listenEntry struct {
	path    string
	changed chan struct{}
}

func newPGListener(cfg *pgx.ConnConfig, l *logger.Logger) *pgListener {
	ctx, cancel := context.WithCancel(context.Background())
	return &pgListener{
		connConfig: cfg,
		log:        l,
		subs:       map[uint64]listenEntry{},
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// add registers path and returns the channel signalled on writes under it.
func (l *pgListener) add(path string) (uint64, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	entry := listenEntry{path: path, changed: make(chan struct{}, 1)}
	l.subs[l.nextID] = entry
	return l.nextID, entry.changed
}

func (l *pgListener) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, id)
}

func (l *pgListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *pgListener) dispatch(written string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.subs {
		if covers(e.path, written) {
			signal(e.changed)
		}
	}
}

// wakeAll makes every subscription re-read, for writes that happened while
// nobody was listening.
func (l *pgListener) wakeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.subs {
		signal(e.changed)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// start launches the listen loop once.
func (l *pgListener) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.ctx.Err() != nil {
		return
	}
	l.started = true
	go l.run()
}

func (l *pgListener) run() {
	defer close(l.done)
	backoff := listenRetryMin
	for {
		connected, err := l.listenOnce()
		if l.ctx.Err() != nil {
			return
		}
		if connected {
			backoff = listenRetryMin
		}
		l.log.Warnf("store listener: %v, reconnecting in %s", err, backoff)
		select {
		case <-l.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, listenRetryMax)
	}
}

func (l *pgListener) listenOnce() (bool, error) {
	conn, err := pgx.ConnectConfig(l.ctx, l.connConfig)
	if err != nil {
		return false, err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(l.ctx, "LISTEN "+notifyChannel); err != nil {
		return false, err
	}
	l.wakeAll()
	for {
		n, err := conn.WaitForNotification(l.ctx)
		if err != nil {
			return true, err
		}
		l.dispatch(n.Payload)
	}
}

func (l *pgListener) close() {
	l.mu.Lock()
	started := l.started
	l.cancel()
	l.mu.Unlock()
	if started {
		<-l.done
	}
}
