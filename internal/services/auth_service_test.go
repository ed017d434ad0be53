package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"globalgigs/config"
	"globalgigs/internal/domain"
	apperrors "globalgigs/pkg/errors"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret", JWTIssuer: "globalgigs", JWTExpiry: time.Hour})

	token, err := svc.IssueAccessToken("u1", domain.RoleFreelancer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != domain.RoleFreelancer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Hour})
	other := NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour})

	foreign, err := other.IssueAccessToken("u1", domain.RoleClient)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	expiredSvc := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiry: time.Minute})
	expiredSvc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredSvc.IssueAccessToken("u1", domain.RoleClient)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for name, token := range map[string]string{"empty": "", "garbage": "abc", "foreign": foreign, "expired": expired} {
		if _, err := svc.ParseAccessToken(token); !errors.Is(err, apperrors.ErrUnauthorized) {
			t.Errorf("%s: expected unauthorized, got %v", name, err)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), "u1", domain.RoleClient)

	if id, ok := UserIDFromContext(ctx); !ok || id != "u1" {
		t.Fatalf("unexpected user id %q", id)
	}
	if role, ok := RoleFromContext(ctx); !ok || role != domain.RoleClient {
		t.Fatalf("unexpected role %q", role)
	}
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a user")
	}
}
