package repository

import (
	"context"
	"errors"
	"fmt"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"

	"github.com/google/uuid"
)

type StoreGigRepository struct {
	st store.Store
}

func NewGigRepository(st store.Store) GigRepository {
	return &StoreGigRepository{st: st}
}

func gigPath(id string) string {
	return store.Join(domain.GigsPath, id)
}

// NewGigID reserves a time-ordered id so a replayed acceptance writes the
// same gig instead of a second one.
func (r *StoreGigRepository) NewGigID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("gig id: %w", err)
	}
	return id.String(), nil
}

func (r *StoreGigRepository) CreateGig(ctx context.Context, g gig.Gig) (bool, error) {
	if g.ID == "" {
		return false, apperrors.Invalid("id", "is required")
	}
	fields, err := toFields(g)
	if err != nil {
		return false, err
	}
	fields["createdAt"] = store.ServerTimestamp
	return r.st.Create(ctx, gigPath(g.ID), fields)
}

func (r *StoreGigRepository) GetGig(ctx context.Context, id string) (gig.Gig, error) {
	g, err := store.GetAs[gig.Gig](ctx, r.st, gigPath(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return gig.Gig{}, apperrors.NotFound("gig", id)
		}
		return gig.Gig{}, err
	}
	g.ID = id
	return g, nil
}

func (r *StoreGigRepository) TransitionGig(ctx context.Context, id string, from domain.GigStatus, fields map[string]any) error {
	patch := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		patch[k] = v
	}
	patch["updatedAt"] = store.ServerTimestamp
	return r.st.CompareAndSwap(ctx, gigPath(id), "status", string(from), patch)
}

func (r *StoreGigRepository) ListGigsBy(ctx context.Context, field, userID string) ([]gig.Gig, error) {
	nodes, err := r.st.QueryEqual(ctx, domain.GigsPath, field, userID)
	if err != nil {
		return nil, err
	}
	return decodeNodes(nodes, func(g *gig.Gig, id string) { g.ID = id }), nil
}
