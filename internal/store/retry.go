package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"
)

// RetryConfig bounds the backoff applied to idempotent reads.
type RetryConfig struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		Base:     50 * time.Millisecond,
		Max:      time.Second,
	}
}

// Retrying retries Get, Children and QueryEqual on transient failures.
// Writes pass straight through: none of them is safe to repeat blindly.
type Retrying struct {
	Store
	cfg   RetryConfig
	log   *logger.Logger
	sleep func(context.Context, time.Duration) error
}

func NewRetrying(inner Store, cfg RetryConfig, l *logger.Logger) *Retrying {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultRetryConfig().Max
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Retrying{Store: inner, cfg: cfg, log: l, sleep: sleepCtx}
}

func (r *Retrying) Get(ctx context.Context, path string) (json.RawMessage, error) {
	var out json.RawMessage
	err := r.do(ctx, "get "+path, func() error {
		var err error
		out, err = r.Store.Get(ctx, path)
		return err
	})
	return out, err
}

func (r *Retrying) Children(ctx context.Context, collection string) ([]Node, error) {
	var out []Node
	err := r.do(ctx, "children "+collection, func() error {
		var err error
		out, err = r.Store.Children(ctx, collection)
		return err
	})
	return out, err
}

func (r *Retrying) QueryEqual(ctx context.Context, collection, field string, value any) ([]Node, error) {
	var out []Node
	err := r.do(ctx, "query "+collection, func() error {
		var err error
		out, err = r.Store.QueryEqual(ctx, collection, field, value)
		return err
	})
	return out, err
}

func (r *Retrying) do(ctx context.Context, op string, fn func() error) error {
	delay := r.cfg.Base
	var err error
	for attempt := 1; attempt <= r.cfg.Attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, apperrors.ErrServiceUnavailable) {
			return err
		}
		if attempt == r.cfg.Attempts {
			break
		}
		r.log.Ctx(ctx).Warnf("store %s failed (attempt %d/%d), retrying in %s: %v", op, attempt, r.cfg.Attempts, delay, err)
		if serr := r.sleep(ctx, delay); serr != nil {
			return err
		}
		delay *= 2
		if delay > r.cfg.Max {
			delay = r.cfg.Max
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
