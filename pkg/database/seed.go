package database

import (
	"context"
	"fmt"
	"log"

	"globalgigs/internal/domain"
	"globalgigs/internal/domain/gig"
	"globalgigs/internal/domain/user"
	"globalgigs/internal/services"
)

type Services struct {
	Freelancers   *services.FreelancerService
	Conversations *services.ConversationService
	Proposals     *services.ProposalService
	Reviews       *services.ReviewService
}

type SeedConfig struct {
	// WithActivity adds a conversation, an accepted gig and reviews on top
	// of the directory.
	WithActivity bool
}

func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{WithActivity: true}
}

type SeedResult struct {
	Clients     []user.User
	Freelancers []user.FreelancerProfile
	Gigs        []gig.Gig
	Reviews     int
}

type demoFreelancer struct {
	id, email, name, role, category, bio string
	rate                                 float64
	skills                               []string
}

var demoFreelancers = []demoFreelancer{
	{"demo-freelancer-ana", "ana@globalgigs.dev", "Ana Torres", "Frontend Developer", "Web Development",
		"Builds fast React storefronts.", 45, []string{"React", "TypeScript", "Tailwind"}},
	{"demo-freelancer-kofi", "kofi@globalgigs.dev", "Kofi Mensah", "Backend Engineer", "Web Development",
		"APIs and data pipelines in Go.", 60, []string{"Go", "PostgreSQL", "Redis"}},
	{"demo-freelancer-mei", "mei@globalgigs.dev", "Mei Lin", "Product Designer", "Design",
		"Design systems and mobile UX.", 50, []string{"Figma", "UX Research", "Prototyping"}},
	{"demo-freelancer-omar", "omar@globalgigs.dev", "Omar Haddad", "Mobile Developer", "Mobile",
		"Cross-platform apps with React Native.", 55, []string{"React Native", "Swift", "Kotlin"}},
}

var demoClients = []struct{ id, email, name string }{
	{"demo-client-acme", "ops@acme.dev", "Acme Studio"},
	{"demo-client-nova", "hello@nova.dev", "Nova Labs"},
}

// Seed loads demo users and profiles. Repeating it is safe: users are
// created idempotently and activity is only added to empty conversations.
func Seed(ctx context.Context, svc Services, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	result := &SeedResult{}

	for _, c := range demoClients {
		u, err := svc.Freelancers.CreateUser(ctx, c.id, c.email, domain.RoleClient, c.name)
		if err != nil {
			return nil, fmt.Errorf("seed client %s: %w", c.id, err)
		}
		result.Clients = append(result.Clients, u)
	}

	for _, f := range demoFreelancers {
		if _, err := svc.Freelancers.CreateUser(ctx, f.id, f.email, domain.RoleFreelancer, f.name); err != nil {
			return nil, fmt.Errorf("seed freelancer %s: %w", f.id, err)
		}
		role, category, bio, rate := f.role, f.category, f.bio, f.rate
		profile, err := svc.Freelancers.UpdateFreelancerProfile(ctx, f.id, services.ProfilePatch{
			Role:     &role,
			Category: &category,
			Bio:      &bio,
			Rate:     &rate,
			Skills:   f.skills,
		})
		if err != nil {
			return nil, fmt.Errorf("seed profile %s: %w", f.id, err)
		}
		result.Freelancers = append(result.Freelancers, profile)
	}

	if cfg.WithActivity {
		if err := seedActivity(ctx, svc, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func seedActivity(ctx context.Context, svc Services, result *SeedResult) error {
	client := demoClients[0].id
	freelancer := demoFreelancers[0].id

	conv, err := svc.Conversations.FindOrCreate(ctx, client, freelancer)
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}
	existing, err := svc.Conversations.Messages(ctx, conv.ID, client)
	if err != nil {
		return fmt.Errorf("seed conversation messages: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("conversation %s already has activity, skipping", conv.ID)
		return nil
	}

	p, err := svc.Proposals.Create(ctx, services.CreateProposalInput{
		ConversationID: conv.ID,
		FreelancerID:   freelancer,
		ClientID:       client,
		Title:          "Storefront redesign",
		Description:    "Rebuild the product pages in React.",
		Price:          1200,
	})
	if err != nil {
		return fmt.Errorf("seed proposal: %w", err)
	}
	g, err := svc.Proposals.Accept(ctx, p.ID, client)
	if err != nil {
		return fmt.Errorf("seed accept: %w", err)
	}
	result.Gigs = append(result.Gigs, g)

	for i, rating := range []int{5, 4} {
		reviewer := demoClients[i%len(demoClients)].id
		if _, err := svc.Reviews.Add(ctx, services.AddReviewInput{
			FreelancerID: freelancer,
			ClientID:     reviewer,
			Rating:       rating,
			Comment:      "Great to work with.",
		}); err != nil {
			return fmt.Errorf("seed review: %w", err)
		}
		result.Reviews++
	}
	return nil
}
