package services

import (
	"context"
	"errors"
	"strings"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/repository"
	"globalgigs/internal/search"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"
)

// FreelancerSearch finds freelancers and keeps the search index current.
type FreelancerSearch interface {
	FreelancerIndexer
	FindFreelancers(ctx context.Context, query string, limit int) ([]search.FreelancerRecord, error)
}

type ProfilePatch struct {
	Name         *string
	Role         *string
	Category     *string
	Rate         *float64
	Location     *string
	Bio          *string
	Skills       []string
	Experience   []user.Experience
	Availability *domain.Availability
}

type UserPatch struct {
	Name      *string
	AvatarURL *string
}

type PortfolioInput struct {
	Title            string
	Description      string
	ImageURLs        []string
	TechnologiesUsed string
}

type FreelancerMatch struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	Skills        []string `json:"skills"`
	AverageRating float64  `json:"averageRating"`
}

type FreelancerService struct {
	users       repository.UserRepository
	freelancers repository.FreelancerRepository
	search      FreelancerSearch
	log         *logger.Logger
}

func NewFreelancerService(users repository.UserRepository, freelancers repository.FreelancerRepository, fs FreelancerSearch, l *logger.Logger) *FreelancerService {
	if l == nil {
		l = logger.NewNop()
	}
	if fs == nil {
		fs = search.NewService(nil, freelancers, l)
	}
	return &FreelancerService{users: users, freelancers: freelancers, search: fs, log: l}
}

// CreateUser records a signup. Repeating it returns the existing record.
func (s *FreelancerService) CreateUser(ctx context.Context, uid, email string, role domain.Role, name string) (user.User, error) {
	verr := &apperrors.ValidationError{}
	if strings.TrimSpace(uid) == "" {
		verr.Add("id", "is required")
	}
	if !strings.Contains(email, "@") {
		verr.Add("email", "must be a valid email")
	}
	if !role.Valid() {
		verr.Add("role", "must be client or freelancer")
	}
	if err := verr.OrNil(); err != nil {
		return user.User{}, err
	}

	u := user.User{ID: uid, Email: strings.TrimSpace(email), Role: role, Name: strings.TrimSpace(name)}
	if _, err := s.users.CreateUser(ctx, u); err != nil {
		return user.User{}, err
	}
	stored, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return user.User{}, err
	}

	if stored.Role == domain.RoleFreelancer {
		profile := user.FreelancerProfile{
			ID:           uid,
			Name:         firstNonEmpty(stored.Name, stored.Email),
			Availability: domain.AvailabilityFullTime,
			AvatarURL:    stored.AvatarURL,
		}
		created, err := s.freelancers.CreateProfile(ctx, profile)
		if err != nil {
			return user.User{}, err
		}
		if created {
			s.search.IndexFreelancer(profile)
		}
	}
	return stored, nil
}

func (s *FreelancerService) GetUser(ctx context.Context, uid string) (user.User, error) {
	return s.users.GetUser(ctx, uid)
}

func (s *FreelancerService) GetFreelancer(ctx context.Context, id string) (user.FreelancerProfile, error) {
	p, err := s.freelancers.GetProfile(ctx, id)
	if err != nil {
		return user.FreelancerProfile{}, err
	}
	p.RatingSum = 0
	return p, nil
}

func (s *FreelancerService) ListFreelancers(ctx context.Context) ([]user.FreelancerProfile, error) {
	profiles, err := s.freelancers.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].RatingSum = 0
	}
	return profiles, nil
}

func (s *FreelancerService) UpdateFreelancerProfile(ctx context.Context, uid string, patch ProfilePatch) (user.FreelancerProfile, error) {
	if _, err := s.freelancers.GetProfile(ctx, uid); err != nil {
		return user.FreelancerProfile{}, err
	}

	fields := map[string]any{}
	verr := &apperrors.ValidationError{}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			verr.Add("name", "cannot be empty")
		}
		fields["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		fields["role"] = strings.TrimSpace(*patch.Role)
	}
	if patch.Category != nil {
		fields["category"] = strings.TrimSpace(*patch.Category)
	}
	if patch.Rate != nil {
		if *patch.Rate < 0 {
			verr.Add("rate", "cannot be negative")
		}
		fields["rate"] = *patch.Rate
	}
	if patch.Location != nil {
		fields["location"] = strings.TrimSpace(*patch.Location)
	}
	if patch.Bio != nil {
		fields["bio"] = *patch.Bio
	}
	if patch.Skills != nil {
		fields["skills"] = cleanList(patch.Skills)
	}
	if patch.Experience != nil {
		exp := make([]user.Experience, len(patch.Experience))
		for i, e := range patch.Experience {
			e.ID = i
			exp[i] = e
		}
		fields["experience"] = exp
	}
	if patch.Availability != nil {
		if !patch.Availability.Valid() {
			verr.Add("availability", "must be Full-time, Part-time or Unavailable")
		}
		fields["availability"] = string(*patch.Availability)
	}
	if err := verr.OrNil(); err != nil {
		return user.FreelancerProfile{}, err
	}
	return s.applyProfile(ctx, uid, fields)
}

// UpdateUser edits the account record and mirrors it onto a freelancer's
// public profile.
func (s *FreelancerService) UpdateUser(ctx context.Context, uid string, patch UserPatch) (user.User, error) {
	u, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return user.User{}, err
	}

	fields := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return user.User{}, apperrors.Invalid("name", "cannot be empty")
		}
		fields["name"] = name
	}
	if patch.AvatarURL != nil {
		fields["avatarUrl"] = strings.TrimSpace(*patch.AvatarURL)
	}
	if len(fields) == 0 {
		return u, nil
	}

	if err := s.users.UpdateUser(ctx, uid, fields); err != nil {
		return user.User{}, err
	}
	if u.Role == domain.RoleFreelancer {
		if _, err := s.applyProfile(ctx, uid, fields); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return user.User{}, err
		}
	}
	return s.users.GetUser(ctx, uid)
}

// UpdatePortfolio replaces the portfolio. Items are numbered in order, get a
// display hint from their title, and have their technology list split.
func (s *FreelancerService) UpdatePortfolio(ctx context.Context, uid string, items []PortfolioInput) (user.FreelancerProfile, error) {
	if _, err := s.freelancers.GetProfile(ctx, uid); err != nil {
		return user.FreelancerProfile{}, err
	}

	verr := &apperrors.ValidationError{}
	portfolio := make([]user.PortfolioItem, 0, len(items))
	for i, in := range items {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			verr.Add("portfolio.title", "cannot be empty")
		}
		item := user.PortfolioItem{
			ID:               i,
			Title:            title,
			Description:      in.Description,
			ImageURLs:        cleanList(in.ImageURLs),
			Hint:             portfolioHint(title),
			TechnologiesUsed: cleanList(strings.Split(in.TechnologiesUsed, ",")),
		}
		if len(item.ImageURLs) > 0 {
			item.ImageURL = item.ImageURLs[0]
		}
		portfolio = append(portfolio, item)
	}
	if err := verr.OrNil(); err != nil {
		return user.FreelancerProfile{}, err
	}
	return s.applyProfile(ctx, uid, map[string]any{"portfolio": portfolio})
}

// FindFreelancers matches query against profile text and returns the best
// rated matches.
func (s *FreelancerService) FindFreelancers(ctx context.Context, query string, limit int) ([]FreelancerMatch, error) {
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	records, err := s.search.FindFreelancers(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]FreelancerMatch, 0, len(records))
	for _, r := range records {
		out = append(out, FreelancerMatch{
			ID:            r.ID,
			Name:          r.Name,
			Role:          r.Role,
			Skills:        r.Skills,
			AverageRating: r.AverageRating,
		})
	}
	return out, nil
}

func (s *FreelancerService) applyProfile(ctx context.Context, uid string, fields map[string]any) (user.FreelancerProfile, error) {
	if len(fields) > 0 {
		if err := s.freelancers.UpdateProfile(ctx, uid, fields); err != nil {
			return user.FreelancerProfile{}, err
		}
	}
	p, err := s.freelancers.GetProfile(ctx, uid)
	if err != nil {
		return user.FreelancerProfile{}, err
	}
	s.search.IndexFreelancer(p)
	p.RatingSum = 0
	return p, nil
}

func portfolioHint(title string) string {
	words := strings.Fields(title)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.ToLower(strings.Join(words, " "))
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
