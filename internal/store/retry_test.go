package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "globalgigs/pkg/errors"
)

// flakyStore fails the first n reads with a transient error.
type flakyStore struct {
	Store
	failures int
	calls    int
	failWith error
	writes   int
}

func (f *flakyStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.failWith
	}
	return json.RawMessage(`{"title":"ok"}`), nil
}

func (f *flakyStore) Set(ctx context.Context, path string, value any) error {
	f.writes++
	return apperrors.Unavailable("set", errors.New("connection reset"))
}

func newTestRetrying(inner Store, attempts int) (*Retrying, *[]time.Duration) {
	r := NewRetrying(inner, RetryConfig{Attempts: attempts, Base: 10 * time.Millisecond, Max: 25 * time.Millisecond}, nil)
	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func TestRetryingRecoversTransientRead(t *testing.T) {
	inner := &flakyStore{failures: 2, failWith: apperrors.Unavailable("get", errors.New("timeout"))}
	r, slept := newTestRetrying(inner, 4)

	raw, err := r.Get(context.Background(), "gigs/g1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(raw) != `{"title":"ok"}` {
		t.Errorf("unexpected value %s", raw)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 calls, got %d", inner.calls)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*slept) != len(want) {
		t.Fatalf("expected backoff %v, got %v", want, *slept)
	}
	for i := range want {
		if (*slept)[i] != want[i] {
			t.Errorf("backoff %d: expected %s, got %s", i, want[i], (*slept)[i])
		}
	}
}

func TestRetryingCapsBackoffAndGivesUp(t *testing.T) {
	inner := &flakyStore{failures: 10, failWith: apperrors.Unavailable("get", errors.New("timeout"))}
	r, slept := newTestRetrying(inner, 4)

	_, err := r.Get(context.Background(), "gigs/g1")
	if !errors.Is(err, apperrors.ErrServiceUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if inner.calls != 4 {
		t.Errorf("expected 4 attempts, got %d", inner.calls)
	}
	if last := (*slept)[len(*slept)-1]; last != 25*time.Millisecond {
		t.Errorf("expected backoff capped at 25ms, got %s", last)
	}
}

func TestRetryingDoesNotRetryNotFound(t *testing.T) {
	inner := &flakyStore{failures: 5, failWith: apperrors.NotFound("gig", "g1")}
	r, _ := newTestRetrying(inner, 4)

	_, err := r.Get(context.Background(), "gigs/g1")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected a single call, got %d", inner.calls)
	}
}

func TestRetryingNeverRetriesWrites(t *testing.T) {
	inner := &flakyStore{}
	r, _ := newTestRetrying(inner, 4)

	if err := r.Set(context.Background(), "gigs/g1", map[string]any{"title": "x"}); err == nil {
		t.Fatal("expected the write error to surface")
	}
	if inner.writes != 1 {
		t.Errorf("expected one write attempt, got %d", inner.writes)
	}
}
