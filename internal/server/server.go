package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"globalgigs/config"
	"globalgigs/internal/handler"
	"globalgigs/internal/middleware"
	"globalgigs/internal/redis"
	"globalgigs/internal/services"
	"globalgigs/internal/transport/httpdto"
	"globalgigs/internal/websocket"
	apperrors "globalgigs/pkg/errors"
	"globalgigs/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Conversations *handler.ConversationHandler
	Proposals     *handler.ProposalHandler
	Gigs          *handler.GigHandler
	Reviews       *handler.ReviewHandler
	Freelancers   *handler.FreelancerHandler
	Users         *handler.UserHandler
	Uploads       *handler.UploadHandler
	Assistant     *handler.AssistantHandler
	WebSocket     *websocket.Handler
}

// HealthChecker reports whether the store backend answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// SetupRoutes mounts the action layer. limiter may be nil.
func (s *Server) SetupRoutes(handlers *Handlers, authService *services.AuthService, health HealthChecker, limiter *redis.RateLimiter) {
	s.engine.Use(middleware.ErrorHandler(s.logger))
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSOrigin))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), apperrors.CodeUnavailable))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	if handlers.WebSocket != nil {
		s.engine.GET("/v1/ws", handlers.WebSocket.Connect)
	}

	limit := func(bucket redis.Bucket) gin.HandlerFunc {
		return middleware.RateLimitMiddleware(limiter, bucket, s.logger)
	}

	v1 := s.engine.Group("/v1", middleware.AuthMiddleware(authService))

	users := v1.Group("/users")
	{
		users.POST("", handlers.Users.Create)
		users.GET("/me", handlers.Users.Me)
		users.PATCH("/me", handlers.Users.Update)
	}

	conversations := v1.Group("/conversations")
	{
		conversations.POST("", handlers.Conversations.Create)
		conversations.GET("", handlers.Conversations.List)
		conversations.GET("/:id", handlers.Conversations.Get)
		conversations.GET("/:id/messages", handlers.Conversations.Messages)
		conversations.POST("/:id/messages", limit(redis.BucketMessages), handlers.Conversations.SendMessage)
	}

	proposals := v1.Group("/proposals")
	{
		proposals.POST("", limit(redis.BucketProposals), handlers.Proposals.Create)
		proposals.GET("/:id", handlers.Proposals.Get)
		proposals.POST("/:id/accept", handlers.Proposals.Accept)
		proposals.POST("/:id/decline", handlers.Proposals.Decline)
		proposals.POST("/:id/resume", handlers.Proposals.Resume)
	}

	gigs := v1.Group("/gigs")
	{
		gigs.GET("", handlers.Gigs.List)
		gigs.GET("/:id", handlers.Gigs.Get)
		gigs.PATCH("/:id", handlers.Gigs.Edit)
		gigs.POST("/:id/complete", handlers.Gigs.Complete)
		gigs.POST("/:id/cancel", handlers.Gigs.Cancel)
	}

	freelancers := v1.Group("/freelancers")
	{
		freelancers.GET("", handlers.Freelancers.List)
		freelancers.GET("/search", handlers.Freelancers.Search)
		freelancers.PATCH("/me", handlers.Freelancers.UpdateProfile)
		freelancers.PUT("/me/portfolio", handlers.Freelancers.UpdatePortfolio)
		freelancers.GET("/:id", handlers.Freelancers.Get)
		freelancers.GET("/:id/reviews", handlers.Reviews.List)
		freelancers.POST("/:id/reviews", limit(redis.BucketReviews), handlers.Reviews.Create)
	}

	v1.POST("/uploads/presign", handlers.Uploads.Presign)

	assistant := v1.Group("/assistant", limit(redis.BucketAssistant))
	{
		assistant.POST("/chat", handlers.Assistant.Chat)
		assistant.POST("/skills", handlers.Assistant.EnhanceSkills)
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if s.logger != nil {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
		return err
	case <-quit:
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
