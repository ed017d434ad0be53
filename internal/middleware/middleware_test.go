package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"globalgigs/config"
	"globalgigs/internal/domain"
	"globalgigs/internal/redis"
	"globalgigs/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

func newAuth() *services.AuthService {
	return services.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
}

func identityRouter(auth *services.AuthService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequestIDMiddleware(), AuthMiddleware(auth)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		userID, _ := services.UserIDFromContext(c.Request.Context())
		role, _ := services.RoleFromContext(c.Request.Context())
		c.String(http.StatusOK, "%s|%s|%s", userID, role, c.GetString(ContextUserID))
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareSetsIdentity(t *testing.T) {
	auth := newAuth()
	token, err := auth.IssueAccessToken("user-1", domain.RoleFreelancer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := get(identityRouter(auth), token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-1|freelancer|user-1" {
		t.Fatalf("unexpected identity %q", rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	auth := newAuth()
	for name, token := range map[string]string{"missing": "", "garbage": "not-a-jwt"} {
		rec := get(identityRouter(auth), token)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestRequestIDIsKept(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc123" {
		t.Fatalf("expected caller's request id, got %q", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := redis.NewRateLimiter(client, redis.RateLimitConfig{
		redis.BucketMessages: {Max: 2, Window: time.Minute},
	})

	auth := newAuth()
	token, _ := auth.IssueAccessToken("user-1", domain.RoleClient)
	r := identityRouter(auth, RateLimitMiddleware(limiter, redis.BucketMessages, nil))

	for i := 0; i < 2; i++ {
		if rec := get(r, token); rec.Code != http.StatusOK {
			t.Fatalf("hit %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := get(r, token)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining header %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("https://app.globalgigs.dev"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.globalgigs.dev" {
		t.Fatal("origin header missing")
	}
}

func TestRequestIDReplacesUnsafeValue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id with spaces")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	got := rec.Header().Get(HeaderRequestID)
	if got == "bad id with spaces" || len(got) != 32 || rec.Body.String() != got {
		t.Fatalf("expected a minted id, got header %q body %q", got, rec.Body.String())
	}
}
