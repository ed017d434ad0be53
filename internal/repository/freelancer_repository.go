package repository

import (
	"context"
	"errors"
	"fmt"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/store"
	apperrors "globalgigs/pkg/errors"
)

// maxFoldAttempts bounds the optimistic loop that updates the rating aggregate.
const maxFoldAttempts = 32

type StoreFreelancerRepository struct {
	st store.Store
}

func NewFreelancerRepository(st store.Store) FreelancerRepository {
	return &StoreFreelancerRepository{st: st}
}

func freelancerPath(id string) string {
	return store.Join(domain.FreelancersPath, id)
}

func (r *StoreFreelancerRepository) CreateProfile(ctx context.Context, p user.FreelancerProfile) (bool, error) {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Portfolio == nil {
		p.Portfolio = []user.PortfolioItem{}
	}
	if p.Experience == nil {
		p.Experience = []user.Experience{}
	}
	return r.st.Create(ctx, freelancerPath(p.ID), p)
}

func (r *StoreFreelancerRepository) GetProfile(ctx context.Context, id string) (user.FreelancerProfile, error) {
	p, err := store.GetAs[user.FreelancerProfile](ctx, r.st, freelancerPath(id))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return user.FreelancerProfile{}, apperrors.NotFound("freelancer", id)
		}
		return user.FreelancerProfile{}, err
	}
	p.ID = id
	return p, nil
}

func (r *StoreFreelancerRepository) ListProfiles(ctx context.Context) ([]user.FreelancerProfile, error) {
	nodes, err := r.st.Children(ctx, domain.FreelancersPath)
	if err != nil {
		return nil, err
	}
	return decodeNodes(nodes, func(p *user.FreelancerProfile, id string) { p.ID = id }), nil
}

func (r *StoreFreelancerRepository) UpdateProfile(ctx context.Context, id string, fields map[string]any) error {
	return r.st.Update(ctx, freelancerPath(id), fields)
}

func (r *StoreFreelancerRepository) FoldRating(ctx context.Context, id string, rating int) (user.FreelancerProfile, error) {
	for attempt := 0; attempt < maxFoldAttempts; attempt++ {
		p, err := r.GetProfile(ctx, id)
		if err != nil {
			return user.FreelancerProfile{}, err
		}

		// reviewCount is omitted while zero, so the first review expects absence.
		var expected any
		if p.ReviewCount > 0 {
			expected = p.ReviewCount
		}
		count := p.ReviewCount + 1
		sum := p.RatingSum + float64(rating)
		average := sum / float64(count)

		err = r.st.CompareAndSwap(ctx, freelancerPath(id), "reviewCount", expected, map[string]any{
			"reviewCount":   count,
			"ratingSum":     sum,
			"averageRating": average,
		})
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		if err != nil {
			return user.FreelancerProfile{}, err
		}
		p.ReviewCount, p.RatingSum, p.AverageRating = count, sum, average
		return p, nil
	}
	return user.FreelancerProfile{}, apperrors.Unavailable("fold rating", fmt.Errorf("too many concurrent reviews for %s", id))
}

// SetRating replaces the aggregate if it still counts fromCount reviews.
func (r *StoreFreelancerRepository) SetRating(ctx context.Context, id string, fromCount, count int, sum float64) error {
	var expected any
	if fromCount > 0 {
		expected = fromCount
	}
	average := 0.0
	if count > 0 {
		average = sum / float64(count)
	}
	return r.st.CompareAndSwap(ctx, freelancerPath(id), "reviewCount", expected, map[string]any{
		"reviewCount":   count,
		"ratingSum":     sum,
		"averageRating": average,
	})
}
