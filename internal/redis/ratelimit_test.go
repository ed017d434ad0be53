package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T, cfg RateLimitConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client, cfg), mr
}

func TestAllowStopsAtLimit(t *testing.T) {
	limiter, _ := newLimiter(t, RateLimitConfig{BucketProposals: {Max: 2, Window: time.Minute}})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "u1", BucketProposals)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !res.Allowed || res.Remaining != 1-i {
			t.Fatalf("hit %d: unexpected result %+v", i, res)
		}
	}
	res, err := limiter.Allow(ctx, "u1", BucketProposals)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("third hit should be limited")
	}

	other, _ := limiter.Allow(ctx, "u2", BucketProposals)
	if !other.Allowed {
		t.Fatal("limits are per subject")
	}
}

func TestAllowWindowExpires(t *testing.T) {
	limiter, mr := newLimiter(t, RateLimitConfig{BucketMessages: {Max: 1, Window: time.Minute}})
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "u1", BucketMessages); !res.Allowed {
		t.Fatal("first hit should pass")
	}
	if res, _ := limiter.Allow(ctx, "u1", BucketMessages); res.Allowed {
		t.Fatal("second hit should be limited")
	}
	mr.FastForward(61 * time.Second)
	if res, _ := limiter.Allow(ctx, "u1", BucketMessages); !res.Allowed {
		t.Fatal("window should have reset")
	}
}

func TestAllowUnconfiguredBucket(t *testing.T) {
	limiter, _ := newLimiter(t, RateLimitConfig{})
	res, err := limiter.Allow(context.Background(), "u1", BucketReviews)
	if err != nil || !res.Allowed {
		t.Fatalf("unconfigured bucket should pass, got %+v %v", res, err)
	}
}

func TestReset(t *testing.T) {
	limiter, _ := newLimiter(t, RateLimitConfig{BucketReviews: {Max: 1, Window: time.Minute}})
	ctx := context.Background()
	_, _ = limiter.Allow(ctx, "u1", BucketReviews)
	if err := limiter.Reset(ctx, "u1", BucketReviews); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res, _ := limiter.Allow(ctx, "u1", BucketReviews); !res.Allowed {
		t.Fatal("reset should clear the window")
	}
}
