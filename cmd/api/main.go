package main

import (
	"context"
	"log"
	"time"

	"globalgigs/config"
	"globalgigs/internal/assistant"
	"globalgigs/internal/events"
	"globalgigs/internal/handler"
	"globalgigs/internal/redis"
	"globalgigs/internal/repository"
	"globalgigs/internal/search"
	"globalgigs/internal/server"
	"globalgigs/internal/services"
	"globalgigs/internal/storage"
	"globalgigs/internal/store"
	"globalgigs/internal/websocket"
	"globalgigs/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(logger.ModeFor(cfg.AppMode))
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis carries notifications and rate limits for both store backends.
	rdb, err := redis.Connect(ctx, redis.ConfigFrom(cfg), 5*time.Second)
	if err != nil {
		if cfg.StoreBackend != config.StoreBackendPostgres {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		l.Warnf("redis unavailable, notifications and rate limits disabled: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
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
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer st.Close()

	var notifier events.Notifier = events.Discard{}
	var notifications websocket.NotificationSource
	var limiter *redis.RateLimiter
	if rdb != nil {
		rn := events.NewRedisNotifier(rdb, l)
		notifier = rn
		notifications = rn
		if cfg.RateLimitEnabled {
			limiter = redis.NewRateLimiter(rdb, redis.DefaultRateLimitConfig())
		}
	}

	users := repository.NewUserRepository(st)
	freelancerRepo := repository.NewFreelancerRepository(st)
	convRepo := repository.NewConversationRepository(st)
	proposalRepo := repository.NewProposalRepository(st)
	gigRepo := repository.NewGigRepository(st)
	reviewRepo := repository.NewReviewRepository(st)

	var index search.Index
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, l.With(zap.String("component", "search")))
		defer meili.Close()
		index = meili
	}
	searchService := search.NewService(index, freelancerRepo, l)
	go searchService.ReindexAll(ctx)

	authService := services.NewAuthService(cfg)
	participants := services.NewParticipantService(users, freelancerRepo, l)
	conversations := services.NewConversationService(convRepo, participants, notifier, l)
	proposals := services.NewProposalService(proposalRepo, gigRepo, convRepo, conversations, participants, notifier, l)
	gigs := services.NewGigService(gigRepo, proposals, conversations, notifier, l)
	freelancers := services.NewFreelancerService(users, freelancerRepo, searchService, l)
	reviews := services.NewReviewService(reviewRepo, freelancerRepo, participants, searchService, notifier, l)

	ai, err := assistant.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, freelancers, l.With(zap.String("component", "assistant")))
	if err != nil {
		log.Fatalf("Failed to initialize assistant: %v", err)
	}
	defer ai.Close()

	var presigner storage.Presigner
	if cfg.S3Bucket != "" {
		s3Client, err := storage.NewS3Client(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PublicBase: cfg.S3PublicBase,
			PresignTTL: cfg.S3PresignTTL,
		})
		if err != nil {
			l.Warnf("uploads disabled: %v", err)
		} else {
			presigner = s3Client
		}
	}

	wsLog := l.With(zap.String("component", "websocket"))
	feeds := websocket.NewServiceFeeds(conversations, proposals)
	hub := websocket.NewHub(feeds, wsLog)
	go hub.Run(ctx)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Conversations: handler.NewConversationHandler(conversations),
		Proposals:     handler.NewProposalHandler(proposals),
		Gigs:          handler.NewGigHandler(gigs),
		Reviews:       handler.NewReviewHandler(reviews),
		Freelancers:   handler.NewFreelancerHandler(freelancers),
		Users:         handler.NewUserHandler(freelancers),
		Uploads:       handler.NewUploadHandler(storage.NewUploads(presigner)),
		Assistant:     handler.NewAssistantHandler(ai),
		WebSocket:     websocket.NewHandler(authService, hub, feeds, notifications, wsLog),
	}, authService, st, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

