package main

import (
	"context"
	"flag"
	"log"
	"time"

	"globalgigs/config"
	"globalgigs/internal/redis"
	"globalgigs/internal/repository"
	"globalgigs/internal/search"
	"globalgigs/internal/services"
	"globalgigs/internal/store"
	"globalgigs/pkg/database"
	"globalgigs/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	directoryOnly := flag.Bool("directory-only", false, "Seed users and profiles without conversations, gigs or reviews")
	flag.Parse()

	cfg := config.LoadConfig()
	l := logger.New(logger.ModeFor(cfg.AppMode))
	defer l.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var rdb *goredis.Client
	if cfg.StoreBackend != config.StoreBackendPostgres {
		client, err := redis.Connect(ctx, redis.ConfigFrom(cfg), 5*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		rdb = client
	}

	st, err := store.Open(ctx, store.OpenOptions{
		Backend:     cfg.StoreBackend,
		Redis:       rdb,
		PostgresDSN: cfg.PostgresURL(),
		Indexes:     repository.Indexes,
		Retry:       store.RetryConfig{Attempts: cfg.StoreReadRetries, Base: cfg.StoreRetryBase},
		Logger:      l,
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	users := repository.NewUserRepository(st)
	freelancerRepo := repository.NewFreelancerRepository(st)
	convRepo := repository.NewConversationRepository(st)

	var index search.Index
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, l)
		defer meili.Close()
		index = meili
	}
	searchService := search.NewService(index, freelancerRepo, l)

	participants := services.NewParticipantService(users, freelancerRepo, l)
	conversations := services.NewConversationService(convRepo, participants, nil, l)
	svc := database.Services{
		Freelancers:   services.NewFreelancerService(users, freelancerRepo, searchService, l),
		Conversations: conversations,
		Proposals:     services.NewProposalService(repository.NewProposalRepository(st), repository.NewGigRepository(st), convRepo, conversations, participants, nil, l),
		Reviews:       services.NewReviewService(repository.NewReviewRepository(st), freelancerRepo, participants, searchService, nil, l),
	}

	result, err := database.Seed(ctx, svc, &database.SeedConfig{WithActivity: !*directoryOnly})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	searchService.ReindexAll(ctx)

	log.Println("Seed Summary:")
	log.Printf("   - Clients: %d", len(result.Clients))
	log.Printf("   - Freelancers: %d", len(result.Freelancers))
	log.Printf("   - Gigs: %d", len(result.Gigs))
	log.Printf("   - Reviews: %d", result.Reviews)
	log.Println("Seeding completed")
}
