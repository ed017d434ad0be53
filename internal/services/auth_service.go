package services

import (
	"context"
	"time"

	"globalgigs/config"
	"globalgigs/internal/domain"
	apperrors "globalgigs/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims identify the caller. Subject is the user id.
type AccessClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	jwtSecret []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
}

func NewAuthService(cfg *config.Config) *AuthService {
	ttl := cfg.JWTExpiry
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(cfg.JWTSecret),
		issuer:    cfg.JWTIssuer,
		accessTTL: ttl,
		now:       time.Now,
	}
}

// IssueAccessToken signs a token for userID. The identity provider normally
// does this; the seeder and tests use it directly.
func (s *AuthService) IssueAccessToken(userID string, role domain.Role) (string, error) {
	if userID == "" || !role.Valid() {
		return "", apperrors.ErrInvalidInput
	}
	now := s.now()
	claims := AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, apperrors.ErrUnauthorized
	}

	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, opts...)
	if err != nil {
		return AccessClaims{}, apperrors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return AccessClaims{}, apperrors.ErrUnauthorized
	}

	return *claims, nil
}

type ctxKey string

var userIDKey ctxKey = "user_id"
var roleKey ctxKey = "role"

func WithIdentity(ctx context.Context, userID string, role domain.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	role, ok := ctx.Value(roleKey).(domain.Role)
	return role, ok
}
