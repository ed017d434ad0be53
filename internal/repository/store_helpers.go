package repository

import (
	"encoding/json"
	"fmt"

	"globalgigs/internal/store"
)

// toFields turns an entity into a document map, dropping the given keys.
func toFields(v any, drop ...string) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	for _, k := range drop {
		delete(fields, k)
	}
	return fields, nil
}

// decodeNodes decodes every child and stamps its key as the id. Children
// that fail to decode are skipped.
func decodeNodes[T any](nodes []store.Node, setID func(*T, string)) []T {
	out := make([]T, 0, len(nodes))
	for _, n := range nodes {
		v, err := store.Decode[T](n.Value)
		if err != nil {
			continue
		}
		setID(&v, n.Key)
		out = append(out, v)
	}
	return out
}
