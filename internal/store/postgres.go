package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// notifyChannel carries the written path of every committed write.
const notifyChannel = "store_changes"

// PostgresStore keeps every document as a row of the documents table created
// by migrations/000001_documents.up.sql.
type PostgresStore struct {
	pool     *pgxpool.Pool
	listener *pgListener
	log      *logger.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, l *logger.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.Unavailable("store connect", err)
	}
	if l == nil {
		l = logger.NewNop()
	}
	l = l.With(zap.String("component", "store.postgres"))
	return &PostgresStore{
		pool:     pool,
		listener: newPGListener(cfg.ConnConfig.Copy(), l),
		log:      l,
	}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return apperrors.Unavailable("store ping", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.listener.close()
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = s.pool.QueryRow(ctx, `SELECT value FROM documents WHERE path = $1`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		collection, key := split(path)
		return nil, apperrors.NotFound(resourceName(collection), key)
	}
	if err != nil {
		return nil, apperrors.Unavailable("store get", err)
	}
	return raw, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, value any) error {
	return s.write(ctx, path, func(_ map[string]any, _ bool, now int64) (map[string]any, error) {
		return toDoc(value, now)
	})
}

func (s *PostgresStore) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.write(ctx, path, func(old map[string]any, _ bool, now int64) (map[string]any, error) {
		return merge(old, fields, now)
	})
}

func (s *PostgresStore) Push(ctx context.Context, collection string, value any) (string, error) {
	collection, err := cleanPath(collection)
	if err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("store: push id: %w", err)
	}
	if err := s.Set(ctx, Join(collection, id.String()), value); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *PostgresStore) Create(ctx context.Context, path string, value any) (bool, error) {
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

func (s *PostgresStore) CompareAndSwap(ctx context.Context, path, field string, expected any, fields map[string]any) error {
	return s.write(ctx, path, guard(path, field, expected, fields))
}

var errRowAppeared = errors.New("store: row appeared concurrently")

func (s *PostgresStore) write(ctx context.Context, path string, mutate func(old map[string]any, exists bool, now int64) (map[string]any, error)) error {
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			return s.writeTx(ctx, tx, path, mutate)
		})
		if errors.Is(err, errRowAppeared) {
			continue
		}
		return classify("store write", err)
	}
	return apperrors.Unavailable("store write", fmt.Errorf("too much contention on %s", path))
}

func (s *PostgresStore) writeTx(ctx context.Context, tx pgx.Tx, path string, mutate func(map[string]any, bool, int64) (map[string]any, error)) error {
	parent, key := split(path)

	var (
		raw    []byte
		old    map[string]any
		now    int64
		exists = true
	)
	err := tx.QueryRow(ctx, `SELECT value FROM documents WHERE path = $1 FOR UPDATE`, path).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		exists = false
	case err != nil:
		return apperrors.Unavailable("store read", err)
	default:
		if old, err = decodeDoc(raw); err != nil {
			return fmt.Errorf("store: corrupt document %s: %w", path, err)
		}
	}

	if err := tx.QueryRow(ctx, `SELECT (extract(epoch FROM clock_timestamp()) * 1000)::bigint`).Scan(&now); err != nil {
		return apperrors.Unavailable("store time", err)
	}
	next, err := mutate(old, exists, now)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", path, err)
	}

	if exists {
		if _, err := tx.Exec(ctx, `UPDATE documents SET value = $2, updated_at = now() WHERE path = $1`, path, payload); err != nil {
			return apperrors.Unavailable("store write", err)
		}
	} else {
		tag, err := tx.Exec(ctx,
			`INSERT INTO documents (path, parent, key, value, updated_at)
			 VALUES ($1, $2, $3, $4, now())
			 ON CONFLICT (path) DO NOTHING`,
			path, parent, key, payload)
		if err != nil {
			return apperrors.Unavailable("store write", err)
		}
		if tag.RowsAffected() == 0 {
			return errRowAppeared
		}
	}

	// pg_notify is transactional: listeners see it only after commit.
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, path); err != nil {
		return apperrors.Unavailable("store notify", err)
	}
	return nil
}

func (s *PostgresStore) Children(ctx context.Context, collection string) ([]Node, error) {
	collection, err := cleanPath(collection)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM documents WHERE parent = $1 ORDER BY key`, collection)
	if err != nil {
		return nil, apperrors.Unavailable("store children", err)
	}
	return collectNodes(rows)
}

func (s *PostgresStore) QueryEqual(ctx context.Context, collection, field string, value any) ([]Node, error) {
	collection, err := cleanPath(collection)
	if err != nil {
		return nil, err
	}
	probe, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("store: encode query: %w", err)
	}
	// Containment is served by the jsonb_path_ops GIN index.
	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM documents WHERE parent = $1 AND value @> $2::jsonb ORDER BY key`,
		collection, probe)
	if err != nil {
		return nil, apperrors.Unavailable("store query", err)
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, err
	}
	return filterEqual(nodes, field, value), nil
}

func collectNodes(rows pgx.Rows) ([]Node, error) {
	defer rows.Close()
	nodes := []Node{}
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, apperrors.Unavailable("store scan", err)
		}
		nodes = append(nodes, Node{Key: key, Value: raw})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Unavailable("store scan", err)
	}
	return nodes, nil
}

func (s *PostgresStore) snapshot(ctx context.Context, path string) (Snapshot, error) {
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

// Subscribe registers path with the shared listener. Snapshots are read
// through the pool, so any number of subscriptions costs one connection.
func (s *PostgresStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (*Subscription, error) {
	path, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	s.listener.start()
	id, changed := s.listener.add(path)

	sub, subCtx := newSubscription(ctx, path, fn)
	go sub.run(subCtx,
		func(ctx context.Context) (Snapshot, error) { return s.snapshot(ctx, path) },
		changed,
		func(err error) { s.log.Warnf("snapshot %s: %v", path, err) },
		func() { s.listener.remove(id) },
	)
	return sub, nil
}
