package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// RefreshTokenRepository defines the interface for refresh token storage
type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// NewRefreshTokenRepository picks the refresh token backend by name:
// "redis" or "postgres".
func NewRefreshTokenRepository(store string, db *bun.DB, client *redis.Client) (RefreshTokenRepository, error) {
	switch store {
	case "redis":
		return NewRedisRepository(client), nil
	case "postgres":
		return NewRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown refresh token store %q", store)
	}
}
