package services

import (
	"context"
	"errors"
	"testing"

	"globalgigs/internal/domain"
	apperrors "globalgigs/pkg/errors"
)

func TestCreateUserIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	again, err := h.freelancers.CreateUser(ctx, freelancerID, "other@example.com", domain.RoleClient, "Someone Else")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if again.Role != domain.RoleFreelancer || again.Name != "Fred Freelancer" {
		t.Fatalf("existing record must win, got %+v", again)
	}

	p, err := h.freelancers.GetFreelancer(ctx, freelancerID)
	if err != nil {
		t.Fatalf("get freelancer: %v", err)
	}
	if p.Availability != domain.AvailabilityFullTime || p.Skills == nil {
		t.Fatalf("unexpected seeded profile: %+v", p)
	}
}

func TestUpdatePortfolioDerivesHintsAndTechnologies(t *testing.T) {
	h := newHarness(t)

	p, err := h.freelancers.UpdatePortfolio(context.Background(), freelancerID, []PortfolioInput{
		{Title: "Mobile Banking App", Description: "iOS", TechnologiesUsed: "Swift, Firebase ,, UIKit", ImageURLs: []string{"https://cdn/x.png"}},
		{Title: "Dashboard", TechnologiesUsed: ""},
	})
	if err != nil {
		t.Fatalf("update portfolio: %v", err)
	}
	if len(p.Portfolio) != 2 {
		t.Fatalf("expected 2 items, got %d", len(p.Portfolio))
	}
	first := p.Portfolio[0]
	if first.ID != 0 || first.Hint != "mobile banking" || first.ImageURL != "https://cdn/x.png" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if len(first.TechnologiesUsed) != 3 || first.TechnologiesUsed[1] != "Firebase" {
		t.Errorf("unexpected technologies: %v", first.TechnologiesUsed)
	}
	if p.Portfolio[1].ID != 1 || p.Portfolio[1].Hint != "dashboard" || len(p.Portfolio[1].TechnologiesUsed) != 0 {
		t.Errorf("unexpected second item: %+v", p.Portfolio[1])
	}
}

func TestUpdateProfileValidates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	bad := domain.Availability("Sometimes")
	negative := -5.0
	_, err := h.freelancers.UpdateFreelancerProfile(ctx, freelancerID, ProfilePatch{Availability: &bad, Rate: &negative})
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", err)
	}

	if _, err := h.freelancers.UpdateFreelancerProfile(ctx, "ghost", ProfilePatch{}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateUserMirrorsFreelancerProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	name, avatar := "Frederick", "https://cdn/fred.png"
	if _, err := h.freelancers.UpdateUser(ctx, freelancerID, UserPatch{Name: &name, AvatarURL: &avatar}); err != nil {
		t.Fatalf("update user: %v", err)
	}
	p, err := h.freelancers.GetFreelancer(ctx, freelancerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Name != name || p.AvatarURL != avatar {
		t.Fatalf("profile not mirrored: %+v", p)
	}

	clientName := "Cara C."
	if _, err := h.freelancers.UpdateUser(ctx, clientID, UserPatch{Name: &clientName}); err != nil {
		t.Fatalf("update client: %v", err)
	}
	if _, err := h.freelancers.GetFreelancer(ctx, clientID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("clients must not get a freelancer profile, got %v", err)
	}
}

func TestFindFreelancersRanksByRating(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.freelancers.CreateUser(ctx, "freelancer-2", "gina@example.com", domain.RoleFreelancer, "Gina"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, id := range []string{freelancerID, "freelancer-2"} {
		if _, err := h.freelancers.UpdateFreelancerProfile(ctx, id, ProfilePatch{Skills: []string{"React", " Node "}}); err != nil {
			t.Fatalf("skills: %v", err)
		}
	}
	if _, err := h.reviews.Add(ctx, AddReviewInput{FreelancerID: "freelancer-2", ClientID: clientID, Rating: 5}); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, err := h.reviews.Add(ctx, AddReviewInput{FreelancerID: freelancerID, ClientID: clientID, Rating: 3}); err != nil {
		t.Fatalf("review: %v", err)
	}

	matches, err := h.freelancers.FindFreelancers(ctx, "react", 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "freelancer-2" || matches[0].AverageRating != 5 {
		t.Fatalf("unexpected ranking: %+v", matches)
	}
	if matches[1].Skills[1] != "Node" {
		t.Errorf("skills should be trimmed, got %v", matches[1].Skills)
	}

	none, err := h.freelancers.FindFreelancers(ctx, "cobol", 5)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %+v", none)
	}
}
