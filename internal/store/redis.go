package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key patterns:
// - doc:{path} - JSON document
// - kids:{collection} - sorted set of child keys, lexical order
// - ix:{collection}:{field}:{json value} - set of child keys
// - store:{path} - pub/sub channel carrying the written path

const maxTxRetries = 16

type RedisStore struct {
	client  *goredis.Client
	indexes map[string][]string
	log     *logger.Logger
}

type RedisOption func(*RedisStore)

func WithIndexes(indexes ...Index) RedisOption {
	return func(s *RedisStore) {
		for _, idx := range indexes {
			s.indexes[idx.Collection] = append(s.indexes[idx.Collection], idx.Field)
		}
	}
}

func WithRedisLogger(l *logger.Logger) RedisOption {
	return func(s *RedisStore) {
		if l != nil {
			s.log = l
		}
	}
}

// NewRedisStore builds a store on an existing client. The caller keeps
// ownership of the client.
func NewRedisStore(client *goredis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		indexes: map[string][]string{},
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("component", "store.redis"))
	return s
}

func docKey(path string) string        { return "doc:" + path }
func kidsKey(collection string) string { return "kids:" + collection }
func channelKey(path string) string    { return "store:" + path }

func indexKey(collection, field string, value any) string {
	return fmt.Sprintf("ix:%s:%s:%s", collection, field, encodeValue(value))
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return apperrors.Unavailable("store ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return nil
}

func (s *RedisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, docKey(path)).Bytes()
	if errors.Is(err, goredis.Nil) {
		collection, key := split(path)
		return nil, apperrors.NotFound(resourceName(collection), key)
	}
	if err != nil {
		return nil, apperrors.Unavailable("store get", err)
	}
	return raw, nil
}

func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	return s.write(ctx, path, func(_ map[string]any, _ bool, now int64) (map[string]any, error) {
		return toDoc(value, now)
	})
}

func (s *RedisStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.write(ctx, path, func(old map[string]any, _ bool, now int64) (map[string]any, error) {
		return merge(old, fields, now)
	})
}

func (s *RedisStore) Push(ctx context.Context, collection string, value any) (string, error) {
	collection, err := cleanPath(collection)
	if err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("store: push id: %w", err)
	}
	key := id.String()
	if err := s.Set(ctx, Join(collection, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisStore) Create(ctx context.Context, path string, value any) (bool, error) {
	err := s.write(ctx, path, func(_ map[string]any, exists bool, now int64) (map[string]any, error) {
		if exists {
			return nil, errExists
		}
		return toDoc(value, now)
	})
	if errors.Is(err, errExists) {
		return false, nil
	}
	return err == nil, err
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, path, field string, expected any, fields map[string]any) error {
	return s.write(ctx, path, guard(path, field, expected, fields))
}

// write runs mutate inside WATCH/MULTI on the document key and retries when a
// concurrent writer touched the key first.
func (s *RedisStore) write(ctx context.Context, path string, mutate func(old map[string]any, exists bool, now int64) (map[string]any, error)) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	parent, key := split(path)
	dk := docKey(path)

	txf := func(tx *goredis.Tx) error {
		var old map[string]any
		exists := true
		raw, err := tx.Get(ctx, dk).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
			exists = false
		case err != nil:
			return apperrors.Unavailable("store read", err)
		default:
			if old, err = decodeDoc(raw); err != nil {
				return fmt.Errorf("store: corrupt document %s: %w", path, err)
			}
		}

		now, err := tx.Time(ctx).Result()
		if err != nil {
			return apperrors.Unavailable("store time", err)
		}
		next, err := mutate(old, exists, now.UnixMilli())
		if err != nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", path, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, dk, payload, 0)
			if parent != "" {
				pipe.ZAdd(ctx, kidsKey(parent), goredis.Z{Score: 0, Member: key})
				s.reindex(ctx, pipe, parent, key, old, next)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, dk)
		if err == nil {
			s.notify(ctx, path)
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return classify("store write", err)
	}
	return apperrors.Unavailable("store write", fmt.Errorf("too much contention on %s", path))
}

func (s *RedisStore) reindex(ctx context.Context, pipe goredis.Pipeliner, collection, key string, old, next map[string]any) {
	for _, field := range s.indexes[collection] {
		oldV, hadOld := old[field]
		newV, hasNew := next[field]
		if hadOld && (!hasNew || encodeValue(oldV) != encodeValue(newV)) {
			pipe.SRem(ctx, indexKey(collection, field, oldV), key)
		}
		if hasNew {
			pipe.SAdd(ctx, indexKey(collection, field, newV), key)
		}
	}
}

func (s *RedisStore) notify(ctx context.Context, path string) {
	pipe := s.client.Pipeline()
	for _, p := range lineage(path) {
		pipe.Publish(ctx, channelKey(p), path)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warnf("publish change for %s: %v", path, err)
	}
}

func (s *RedisStore) Children(ctx context.Context, collection string) ([]Node, error) {
	collection, err := cleanPath(collection)
	if err != nil {
		return nil, err
	}
	keys, err := s.client.ZRange(ctx, kidsKey(collection), 0, -1).Result()
	if err != nil {
		return nil, apperrors.Unavailable("store children", err)
	}
	return s.load(ctx, collection, keys)
}

func (s *RedisStore) QueryEqual(ctx context.Context, collection, field string, value any) ([]Node, error) {
	collection, err := cleanPath(collection)
	if err != nil {
		return nil, err
	}
	if !s.indexed(collection, field) {
		nodes, err := s.Children(ctx, collection)
		if err != nil {
			return nil, err
		}
		return filterEqual(nodes, field, value), nil
	}

	keys, err := s.client.SMembers(ctx, indexKey(collection, field, value)).Result()
	if err != nil {
		return nil, apperrors.Unavailable("store query", err)
	}
	nodes, err := s.load(ctx, collection, keys)
	if err != nil {
		return nil, err
	}
	nodes = filterEqual(nodes, field, value)
	sortNodes(nodes)
	return nodes, nil
}

func (s *RedisStore) indexed(collection, field string) bool {
	for _, f := range s.indexes[collection] {
		if f == field {
			return true
		}
	}
	return false
}

func (s *RedisStore) load(ctx context.Context, collection string, keys []string) ([]Node, error) {
	if len(keys) == 0 {
		return []Node{}, nil
	}
	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = docKey(Join(collection, k))
	}
	values, err := s.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, apperrors.Unavailable("store load", err)
	}
	nodes := make([]Node, 0, len(keys))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		nodes = append(nodes, Node{Key: keys[i], Value: json.RawMessage(str)})
	}
	return nodes, nil
}

func (s *RedisStore) snapshot(ctx context.Context, path string) (Snapshot, error) {
	snap := Snapshot{Path: path}
	raw, err := s.Get(ctx, path)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
	case err != nil:
		return snap, err
	default:
		snap.Value = raw
	}
	children, err := s.Children(ctx, path)
	if err != nil {
		return snap, err
	}
	snap.Children = children
	return snap, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (*Subscription, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	pubsub := s.client.Subscribe(ctx, channelKey(path))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, apperrors.Unavailable("store subscribe", err)
	}

	sub, subCtx := newSubscription(ctx, path, fn)
	changed := make(chan struct{}, 1)
	msgs := pubsub.Channel()
	go func() {
		defer close(changed)
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case changed <- struct{}{}:
				default:
				}
			}
		}
	}()

	go sub.run(subCtx,
		func(ctx context.Context) (Snapshot, error) { return s.snapshot(ctx, path) },
		changed,
		func(err error) { s.log.Warnf("snapshot %s: %v", path, err) },
		func() { _ = pubsub.Close() },
	)
	return sub, nil
}

// classify passes domain errors through and marks everything else transient.
func classify(op string, err error) error {
	var (
		ve *apperrors.ValidationError
		ce *apperrors.ConflictError
		ne *apperrors.NotFoundError
		ue *apperrors.UnavailableError
	)
	switch {
	case errors.Is(err, errExists), errors.As(err, &ve), errors.As(err, &ce), errors.As(err, &ne), errors.As(err, &ue):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperrors.Unavailable(op, err)
	}
}
