package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"globalgigs/internal/domain/review"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/events"
	"globalgigs/internal/repository"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"
)

// FreelancerIndexer receives profiles whose searchable data changed.
type FreelancerIndexer interface {
	IndexFreelancer(p user.FreelancerProfile)
}

type AddReviewInput struct {
	FreelancerID string
	ClientID     string
	Rating       int
	Comment      string
}

type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// foldGrace is how long a stored review may wait for its fold before
// Reconcile counts it from the review list.
const foldGrace = time.Minute

// ReviewService appends reviews and keeps each freelancer's running mean.
// Adding a review never reads or rewrites earlier ones.
type ReviewService struct {
	reviews      repository.ReviewRepository
	freelancers  repository.FreelancerRepository
	participants *ParticipantService
	indexer      FreelancerIndexer
	notifier     events.Notifier
	log          *logger.Logger
	now          func() time.Time
}

func NewReviewService(reviews repository.ReviewRepository, freelancers repository.FreelancerRepository, participants *ParticipantService, indexer FreelancerIndexer, notifier events.Notifier, l *logger.Logger) *ReviewService {
	if notifier == nil {
		notifier = events.Discard{}
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &ReviewService{
		reviews:      reviews,
		freelancers:  freelancers,
		participants: participants,
		indexer:      indexer,
		notifier:     notifier,
		log:          l,
		now:          time.Now,
	}
}

func (s *ReviewService) Add(ctx context.Context, in AddReviewInput) (review.Review, error) {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(in.FreelancerID) == "" {
		verr.Add("freelancerId", "is required")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		verr.Add("clientId", "is required")
	}
	if in.Rating < review.MinRating || in.Rating > review.MaxRating {
		verr.Add("rating", "must be between 1 and 5")
	}
	if in.ClientID != "" && in.ClientID == in.FreelancerID {
		verr.Add("clientId", "cannot review yourself")
	}
	if err := verr.OrNil(); err != nil {
		return review.Review{}, err
	}

	if _, err := s.freelancers.GetProfile(ctx, in.FreelancerID); err != nil {
		return review.Review{}, err
	}

	client := s.participants.Resolve(ctx, in.ClientID)
	rv, err := s.reviews.AddReview(ctx, review.Review{
		FreelancerID:    in.FreelancerID,
		ClientID:        in.ClientID,
		ClientName:      client.Name,
		ClientAvatarURL: client.AvatarURL,
		Rating:          in.Rating,
		Comment:         strings.TrimSpace(in.Comment),
	})
	if err != nil {
		return review.Review{}, err
	}

	// A failed fold is not reported: the review is stored and Reconcile
	// counts it later.
	profile, err := s.freelancers.FoldRating(ctx, in.FreelancerID, in.Rating)
	if err != nil {
		s.log.Ctx(ctx).Errorf("review %s stored but rating not folded: %v", rv.ID, err)
	} else if s.indexer != nil {
		s.indexer.IndexFreelancer(profile)
	}

	s.notifier.Notify(ctx, in.FreelancerID, events.Event{
		Type:    events.EventReviewCreated,
		Payload: events.ReviewPayload{ReviewID: rv.ID, FreelancerID: rv.FreelancerID, Rating: rv.Rating},
	})
	return rv, nil
}

// List returns the freelancer's reviews, newest first.
func (s *ReviewService) List(ctx context.Context, freelancerID string) ([]review.Review, error) {
	if freelancerID == "" {
		return nil, apperrors.Invalid("freelancerId", "is required")
	}
	return s.reviews.ListReviews(ctx, freelancerID)
}

// AverageRating reads the stored aggregate after reconciling it with the
// stored reviews. It is zero before the first review.
func (s *ReviewService) AverageRating(ctx context.Context, freelancerID string) (RatingSummary, error) {
	return s.Reconcile(ctx, freelancerID)
}

// Reconcile recomputes the aggregate from the stored reviews when it counts
// fewer of them, which happens when a fold failed after its review was
// written. While any review is younger than foldGrace its fold may still be
// running, so the stored aggregate is returned untouched.
func (s *ReviewService) Reconcile(ctx context.Context, freelancerID string) (RatingSummary, error) {
	p, err := s.freelancers.GetProfile(ctx, freelancerID)
	if err != nil {
		return RatingSummary{}, err
	}
	current := RatingSummary{AverageRating: p.AverageRating, ReviewCount: p.ReviewCount}

	reviews, err := s.reviews.ListReviews(ctx, freelancerID)
	if err != nil {
		return RatingSummary{}, err
	}
	if len(reviews) <= p.ReviewCount {
		return current, nil
	}

	cutoff := s.now().Add(-foldGrace).UnixMilli()
	sum := 0.0
	for _, rv := range reviews {
		if rv.CreatedAt == 0 || rv.CreatedAt > cutoff {
			return current, nil
		}
		sum += float64(rv.Rating)
	}

	err = s.freelancers.SetRating(ctx, freelancerID, p.ReviewCount, len(reviews), sum)
	if errors.Is(err, apperrors.ErrConflict) {
		// Folded concurrently. A later read reconciles again if still behind.
		return current, nil
	}
	if err != nil {
		return RatingSummary{}, err
	}
	s.log.Ctx(ctx).Infof("freelancer %s rating reconciled: %d reviews, was %d", freelancerID, len(reviews), p.ReviewCount)

	if s.indexer != nil {
		if updated, err := s.freelancers.GetProfile(ctx, freelancerID); err == nil {
			s.indexer.IndexFreelancer(updated)
		}
	}
	return RatingSummary{AverageRating: sum / float64(len(reviews)), ReviewCount: len(reviews)}, nil
}
