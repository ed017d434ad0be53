package search

import (
	"context"

	"globalgigs/internal/domain/user"
	"globalgigs/pkg/logger"
)

// ProfileSource lists every stored freelancer profile.
type ProfileSource interface {
	ListProfiles(ctx context.Context) ([]user.FreelancerProfile, error)
}

// Index is the Meilisearch side of the facade.
type Index interface {
	Healthy() bool
	Search(query string) ([]FreelancerRecord, error)
	IndexFreelancers(records []FreelancerRecord) error
}

// Service tries the search index first and falls back to scanning the store.
// Both paths apply the same filter and order.
type Service struct {
	index  Index
	source ProfileSource
	log    *logger.Logger
}

// NewService creates the facade. index may be nil when Meilisearch is not configured.
func NewService(index Index, source ProfileSource, l *logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	return &Service{index: index, source: source, log: l}
}

func (s *Service) indexReady() bool {
	return s.index != nil && s.index.Healthy()
}

func (s *Service) FindFreelancers(ctx context.Context, query string, limit int) ([]FreelancerRecord, error) {
	if s.indexReady() {
		records, err := s.index.Search(query)
		if err == nil {
			return Rank(records, query, limit), nil
		}
		s.log.Ctx(ctx).Warnf("search: meilisearch error, falling back to store scan: %v", err)
	}

	profiles, err := s.source.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]FreelancerRecord, 0, len(profiles))
	for _, p := range profiles {
		records = append(records, RecordFromProfile(p))
	}
	return Rank(records, query, limit), nil
}

// IndexFreelancer pushes one profile to the index without blocking the caller.
func (s *Service) IndexFreelancer(p user.FreelancerProfile) {
	if !s.indexReady() {
		return
	}
	rec := RecordFromProfile(p)
	go func() {
		if err := s.index.IndexFreelancers([]FreelancerRecord{rec}); err != nil {
			s.log.Warnf("search: index freelancer %s: %v", rec.ID, err)
		}
	}()
}

// ReindexAll loads every profile from the store and pushes it to the index.
func (s *Service) ReindexAll(ctx context.Context) {
	if !s.indexReady() {
		return
	}
	profiles, err := s.source.ListProfiles(ctx)
	if err != nil {
		s.log.Warnf("search: reindex load failed: %v", err)
		return
	}
	records := make([]FreelancerRecord, 0, len(profiles))
	for _, p := range profiles {
		records = append(records, RecordFromProfile(p))
	}
	if err := s.index.IndexFreelancers(records); err != nil {
		s.log.Warnf("search: reindex freelancers: %v", err)
	}
}
