package repository

import (
	"context"
	"sort"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/review"
	"globalgigs/internal/store"
)

type StoreReviewRepository struct {
	st store.Store
}

func NewReviewRepository(st store.Store) ReviewRepository {
	return &StoreReviewRepository{st: st}
}

func reviewsPath(freelancerID string) string {
	return store.Join(domain.ReviewsPath, freelancerID)
}

func (r *StoreReviewRepository) AddReview(ctx context.Context, rv review.Review) (review.Review, error) {
	fields, err := toFields(rv, "id")
	if err != nil {
		return review.Review{}, err
	}
	fields["createdAt"] = store.ServerTimestamp

	id, err := r.st.Push(ctx, reviewsPath(rv.FreelancerID), fields)
	if err != nil {
		return review.Review{}, err
	}
	rv.ID = id
	if stored, err := store.GetAs[review.Review](ctx, r.st, store.Join(reviewsPath(rv.FreelancerID), id)); err == nil {
		stored.ID = id
		return stored, nil
	}
	return rv, nil
}

// ListReviews returns the newest reviews first.
func (r *StoreReviewRepository) ListReviews(ctx context.Context, freelancerID string) ([]review.Review, error) {
	nodes, err := r.st.Children(ctx, reviewsPath(freelancerID))
	if err != nil {
		return nil, err
	}
	reviews := decodeNodes(nodes, func(rv *review.Review, id string) { rv.ID = id })
	sort.SliceStable(reviews, func(i, j int) bool {
		if reviews[i].CreatedAt != reviews[j].CreatedAt {
			return reviews[i].CreatedAt > reviews[j].CreatedAt
		}
		return reviews[i].ID > reviews[j].ID
	})
	return reviews, nil
}
