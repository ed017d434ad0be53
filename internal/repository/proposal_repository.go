package repository

import (
	"context"
	"errors"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"
)

type StoreProposalRepository struct {
	st store.Store
}

func NewProposalRepository(st store.Store) ProposalRepository {
	return &StoreProposalRepository{st: st}
}

func proposalPath(id string) string {
	return store.Join(domain.ProposalsPath, id)
}

func (r *StoreProposalRepository) CreateProposal(ctx context.Context, p gig.Proposal) (gig.Proposal, error) {
	p.Status = domain.ProposalPending
	fields, err := toFields(p, "id")
	if err != nil {
		return gig.Proposal{}, err
	}
	fields["createdAt"] = store.ServerTimestamp

	id, err := r.st.Push(ctx, domain.ProposalsPath, fields)
	if err != nil {
		return gig.Proposal{}, err
	}
	stored, err := r.GetProposal(ctx, id)
	if err != nil {
		p.ID = id
		return p, nil
	}
	return stored, nil
}

func (r *StoreProposalRepository) GetProposal(ctx context.Context, id string) (gig.Proposal, error) {
	p, err := store.GetAs[gig.Proposal](ctx, r.st, proposalPath(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return gig.Proposal{}, apperrors.NotFound("proposal", id)
		}
		return gig.Proposal{}, err
	}
	p.ID = id
	return p, nil
}

func (r *StoreProposalRepository) TransitionProposal(ctx context.Context, id string, from, to domain.ProposalStatus, fields map[string]any) error {
	patch := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		patch[k] = v
	}
	patch["status"] = string(to)
	patch["resolvedAt"] = store.ServerTimestamp
	return r.st.CompareAndSwap(ctx, proposalPath(id), "status", string(from), patch)
}

// MarkLapsed flags an accepted proposal whose gig closed before it applied.
func (r *StoreProposalRepository) MarkLapsed(ctx context.Context, id string) error {
	return r.st.CompareAndSwap(ctx, proposalPath(id), "status", string(domain.ProposalAccepted), map[string]any{
		"lapsed": true,
	})
}

// SubscribeProposal reports the current proposal and whether it exists.
func (r *StoreProposalRepository) SubscribeProposal(ctx context.Context, id string, fn func(gig.Proposal, bool)) (*store.Subscription, error) {
	return r.st.Subscribe(ctx, proposalPath(id), func(snap store.Snapshot) {
		if snap.Value == nil {
			fn(gig.Proposal{ID: id}, false)
			return
		}
		p, err := store.Decode[gig.Proposal](snap.Value)
		if err != nil {
			return
		}
		p.ID = id
		fn(p, true)
	})
}
