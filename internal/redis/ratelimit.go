package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Bucket names one rate limited action. Keys look like
// ratelimit:{user_id}:{bucket}.
type Bucket string

const (
	BucketMessages  Bucket = "messages"
	BucketProposals Bucket = "proposals"
	BucketReviews   Bucket = "reviews"
	BucketAssistant Bucket = "assistant"
)

type Limit struct {
	Max    int
	Window time.Duration
}

type RateLimitConfig map[Bucket]Limit

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		BucketMessages:  {Max: 60, Window: time.Minute},
		BucketProposals: {Max: 20, Window: time.Minute},
		BucketReviews:   {Max: 10, Window: time.Minute},
		BucketAssistant: {Max: 15, Window: time.Minute},
	}
}

type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// Fixed window counter. The window starts with the first hit.
var limitScript = goredis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local ttl = redis.call('TTL', KEYS[1])
if ttl < 0 then
	ttl = window
end
if current >= limit then
	return {0, 0, ttl}
end
redis.call('INCR', KEYS[1])
if current == 0 then
	redis.call('EXPIRE', KEYS[1], window)
end
return {1, limit - current - 1, ttl}
`)

func key(subject string, bucket Bucket) string {
	return fmt.Sprintf("ratelimit:%s:%s", subject, bucket)
}

// Allow consumes one hit of bucket for subject. Buckets without a
// configured limit always pass.
func (r *RateLimiter) Allow(ctx context.Context, subject string, bucket Bucket) (*RateLimitResult, error) {
	limit, ok := r.config[bucket]
	if !ok || limit.Max <= 0 {
		return &RateLimitResult{Allowed: true}, nil
	}

	seconds := int(limit.Window.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	result, err := limitScript.Run(ctx, r.client, []string{key(subject, bucket)}, limit.Max, seconds).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	return &RateLimitResult{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetIn:   time.Duration(result[2]) * time.Second,
		Limit:     limit.Max,
	}, nil
}

// Reset clears bucket for subject.
func (r *RateLimiter) Reset(ctx context.Context, subject string, bucket Bucket) error {
	return r.client.Del(ctx, key(subject, bucket)).Err()
}
