package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"globalgigs/pkg/logger"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxFreelancers = "globalgigs_freelancers"
	// candidateLimit is how many hits are fetched before local re-ranking.
	candidateLimit = 200
)

// Meili indexes freelancer records in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     *logger.Logger
}

// NewMeili creates the client and starts the health monitor. An unreachable
// server is not an error; searches fall back until it recovers.
func NewMeili(url, apiKey string, l *logger.Logger) *Meili {
	if l == nil {
		l = logger.NewNop()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		log:    l,
	}

	if _, err := m.client.Health(); err != nil {
		m.log.Warnf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxFreelancers,
		PrimaryKey: "id",
	}); err != nil {
		m.log.Debugf("search: create index %s (may already exist): %v", idxFreelancers, err)
	}

	searchable := []string{"name", "role", "skills", "category", "bio", "experience"}
	if _, err := m.client.Index(idxFreelancers).UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warnf("search: update searchable attrs: %v", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Infof("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search returns candidate records for query. Callers re-rank the result.
func (m *Meili) Search(query string) ([]FreelancerRecord, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxFreelancers,
			Query:    query,
			Limit:    candidateLimit,
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	var records []FreelancerRecord
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			rec, err := hitToRecord(hit)
			if err != nil {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func hitToRecord(hit meili.Hit) (FreelancerRecord, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return FreelancerRecord{}, err
	}
	var rec FreelancerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return FreelancerRecord{}, err
	}
	return rec, nil
}

func (m *Meili) IndexFreelancers(records []FreelancerRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxFreelancers).AddDocuments(records, nil)
	return err
}
