package search

import (
	"sort"
	"strings"

	"globalgigs/internal/domain/user"
)

const DefaultLimit = 5

// FreelancerRecord is the searchable projection of a freelancer profile.
type FreelancerRecord struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Category      string   `json:"category"`
	Skills        []string `json:"skills"`
	Bio           string   `json:"bio"`
	Experience    []string `json:"experience"`
	AvatarURL     string   `json:"avatarUrl"`
	AverageRating float64  `json:"averageRating"`
}

func RecordFromProfile(p user.FreelancerProfile) FreelancerRecord {
	exp := make([]string, 0, len(p.Experience))
	for _, e := range p.Experience {
		exp = append(exp, strings.TrimSpace(strings.Join([]string{e.Role, e.Company, e.Description}, " ")))
	}
	skills := p.Skills
	if skills == nil {
		skills = []string{}
	}
	return FreelancerRecord{
		ID:            p.ID,
		Name:          p.Name,
		Role:          p.Role,
		Category:      p.Category,
		Skills:        skills,
		Bio:           p.Bio,
		Experience:    exp,
		AvatarURL:     p.AvatarURL,
		AverageRating: p.AverageRating,
	}
}

// Matches reports whether query occurs, ignoring case, in any searchable
// field. An empty query matches everything.
func Matches(r FreelancerRecord, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	fields := append([]string{r.Name, r.Role, r.Category, r.Bio}, r.Skills...)
	fields = append(fields, r.Experience...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Rank keeps the records matching query, orders them by rating and then
// name, and truncates to limit.
func Rank(records []FreelancerRecord, query string, limit int) []FreelancerRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]FreelancerRecord, 0, len(records))
	for _, r := range records {
		if Matches(r, query) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageRating != out[j].AverageRating {
			return out[i].AverageRating > out[j].AverageRating
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
