// Package store is a hierarchical document store addressed by slash-separated
// paths such as "conversations/{id}/messages/{mid}". Every document is a JSON
// object. Writes to a path notify subscribers of that path and of every
// ancestor path.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "globalgigs/pkg/errors"
)

// ServerTimestamp may be used as a top-level field value on any write. The
// backend replaces it with its own clock in milliseconds since the epoch.
const ServerTimestamp = ".sv:timestamp"

// Node is a direct child of a collection.
type Node struct {
	Key   string
	Value json.RawMessage
}

// Snapshot is the full state of a subscribed path: the document stored at the
// path, if any, plus its direct children in key order.
type Snapshot struct {
	Path     string
	Value    json.RawMessage
	Children []Node
}

func (s Snapshot) Exists() bool {
	return s.Value != nil || len(s.Children) > 0
}

// Index declares an equality index maintained on Field for the direct
// children of Collection.
type Index struct {
	Collection string
	Field      string
}

type Store interface {
	// Get returns the document at path or a NotFoundError.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Set replaces the document at path.
	Set(ctx context.Context, path string, value any) error
	// Update shallow-merges fields into the document, creating it if absent.
	// A nil field value removes the field.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Push stores value under a new time-ordered key of collection.
	Push(ctx context.Context, collection string, value any) (string, error)
	// Create stores value only if nothing exists at path yet.
	Create(ctx context.Context, path string, value any) (bool, error)
	// CompareAndSwap merges fields only while the stored field equals expected.
	CompareAndSwap(ctx context.Context, path, field string, expected any, fields map[string]any) error
	Children(ctx context.Context, collection string) ([]Node, error)
	QueryEqual(ctx context.Context, collection, field string, value any) ([]Node, error)
	// Subscribe delivers the current snapshot of path and then a fresh one
	// after every write at or below path, until the subscription is closed.
	Subscribe(ctx context.Context, path string, fn func(Snapshot)) (*Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

var errExists = errors.New("store: document exists")

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func cleanPath(path string) (string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return "", apperrors.Invalid("path", "is required")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return "", apperrors.Invalid("path", fmt.Sprintf("%q has an empty segment", path))
		}
	}
	return path, nil
}

// split returns the parent collection and the last segment of path.
func split(path string) (string, string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// lineage returns path followed by each of its ancestors.
func lineage(path string) []string {
	out := []string{path}
	for {
		parent, _ := split(path)
		if parent == "" {
			return out
		}
		out = append(out, parent)
		path = parent
	}
}

// covers reports whether a write at written is visible to a subscriber of path.
func covers(path, written string) bool {
	return written == path || strings.HasPrefix(written, path+"/")
}

func decodeDoc(raw []byte) (map[string]any, error) {
	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// toDoc converts value into a document map and resolves ServerTimestamp.
func toDoc(value any, now int64) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("store: encode value: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 || raw[0] != '{' {
		return nil, apperrors.Invalid("value", "must be an object")
	}
	doc, err := decodeDoc(raw)
	if err != nil {
		return nil, fmt.Errorf("store: decode value: %w", err)
	}
	resolveTimestamps(doc, now)
	return doc, nil
}

func resolveTimestamps(doc map[string]any, now int64) {
	for k, v := range doc {
		if s, ok := v.(string); ok && s == ServerTimestamp {
			doc[k] = now
		}
	}
}

func merge(old map[string]any, fields map[string]any, now int64) (map[string]any, error) {
	patch, err := toDoc(fields, now)
	if err != nil {
		return nil, err
	}
	next := make(map[string]any, len(old)+len(patch))
	for k, v := range old {
		next[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(next, k)
			continue
		}
		next[k] = v
	}
	return next, nil
}

func encodeValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func fieldEquals(doc map[string]any, field string, expected any) bool {
	actual, ok := doc[field]
	if !ok {
		return expected == nil
	}
	return encodeValue(actual) == encodeValue(expected)
}

// guard implements the compare-and-swap precondition shared by backends.
func guard(path, field string, expected any, fields map[string]any) func(map[string]any, bool, int64) (map[string]any, error) {
	return func(old map[string]any, exists bool, now int64) (map[string]any, error) {
		collection, key := split(path)
		if !exists {
			return nil, apperrors.NotFound(resourceName(collection), key)
		}
		if !fieldEquals(old, field, expected) {
			actual := ""
			if v, ok := old[field]; ok {
				actual = strings.Trim(encodeValue(v), `"`)
			}
			return nil, &apperrors.ConflictError{
				Resource: resourceName(collection),
				ID:       key,
				Expected: strings.Trim(encodeValue(expected), `"`),
				Actual:   actual,
			}
		}
		return merge(old, fields, now)
	}
}

func resourceName(collection string) string {
	_, last := split(collection)
	return strings.TrimSuffix(last, "s")
}

func filterEqual(nodes []Node, field string, value any) []Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		doc, err := decodeDoc(n.Value)
		if err != nil {
			continue
		}
		if fieldEquals(doc, field, value) {
			out = append(out, n)
		}
	}
	return out
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
}

// Decode unmarshals a raw document into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("store: decode: %w", err)
	}
	return v, nil
}

// GetAs reads path and decodes it into T.
func GetAs[T any](ctx context.Context, s Store, path string) (T, error) {
	raw, err := s.Get(ctx, path)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](raw)
}
