package database

import (
	"context"
	"testing"

	"globalgigs/internal/domain"
	"globalgigs/internal/repository"
	"globalgigs/internal/services"
	"globalgigs/internal/store"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newSeedServices(t *testing.T) Services {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := store.NewRedisStore(client, store.WithIndexes(repository.Indexes...))
	users := repository.NewUserRepository(st)
	freelancerRepo := repository.NewFreelancerRepository(st)
	convRepo := repository.NewConversationRepository(st)
	participants := services.NewParticipantService(users, freelancerRepo, nil)
	conversations := services.NewConversationService(convRepo, participants, nil, nil)

	return Services{
		Freelancers:   services.NewFreelancerService(users, freelancerRepo, nil, nil),
		Conversations: conversations,
		Proposals:     services.NewProposalService(repository.NewProposalRepository(st), repository.NewGigRepository(st), convRepo, conversations, participants, nil, nil),
		Reviews:       services.NewReviewService(repository.NewReviewRepository(st), freelancerRepo, participants, nil, nil, nil),
	}
}

func TestSeedIsRepeatable(t *testing.T) {
	svc := newSeedServices(t)
	ctx := context.Background()

	first, err := Seed(ctx, svc, DefaultSeedConfig())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(first.Freelancers) != len(demoFreelancers) || len(first.Clients) != len(demoClients) {
		t.Fatalf("unexpected result %+v", first)
	}
	if len(first.Gigs) != 1 || first.Gigs[0].Status != domain.GigInProgress || first.Reviews != 2 {
		t.Fatalf("unexpected activity %+v", first)
	}

	second, err := Seed(ctx, svc, DefaultSeedConfig())
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if len(second.Gigs) != 0 || second.Reviews != 0 {
		t.Fatalf("activity should not repeat, got %+v", second)
	}

	profile, err := svc.Freelancers.GetFreelancer(ctx, demoFreelancers[0].id)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.ReviewCount != 2 || profile.AverageRating != 4.5 {
		t.Fatalf("unexpected rating %+v", profile)
	}

	matches, err := svc.Freelancers.FindFreelancers(ctx, "react", 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != demoFreelancers[0].id {
		t.Fatalf("unexpected matches %+v", matches)
	}
}
