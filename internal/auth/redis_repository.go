package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps refresh tokens as Redis hashes that expire with the token
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

type redisRefreshToken struct {
	UserID    string `redis:"user_id"`
	ExpiresAt int64  `redis:"expires_at"`
	CreatedAt int64  `redis:"created_at"`
	RevokedAt int64  `redis:"revoked_at"`
}

func refreshTokenKey(tokenHash string) string {
	return "refresh_token:" + tokenHash
}

func userTokensKey(userID uuid.UUID) string {
	return "user_tokens:" + userID.String()
}

// StoreRefreshToken stores a refresh token in Redis with TTL
func (r *RedisRepository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token expiration time is in the past")
	}

	tokenHash := hashToken(token)
	key := refreshTokenKey(tokenHash)
	setKey := userTokensKey(userID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, redisRefreshToken{
			UserID:    userID.String(),
			ExpiresAt: expiresAt.Unix(),
			CreatedAt: time.Now().Unix(),
		})
		pipe.Expire(ctx, key, ttl)
		// The per-user index lives as long as the newest token
		pipe.SAdd(ctx, setKey, tokenHash)
		pipe.ExpireGT(ctx, setKey, ttl)
		pipe.ExpireNX(ctx, setKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken retrieves a refresh token by its hash
func (r *RedisRepository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	tokenHash := hashToken(token)

	res := r.client.HGetAll(ctx, refreshTokenKey(tokenHash))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if len(res.Val()) == 0 {
		return nil, ErrRefreshTokenNotFound
	}

	var stored redisRefreshToken
	if err := res.Scan(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token: %w", err)
	}

	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	rt := &RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: time.Unix(stored.ExpiresAt, 0),
		CreatedAt: time.Unix(stored.CreatedAt, 0),
	}
	if stored.RevokedAt > 0 {
		revokedAt := time.Unix(stored.RevokedAt, 0)
		rt.RevokedAt = &revokedAt
	}

	return rt, nil
}

// RevokeRefreshToken marks a refresh token as revoked. The hash keeps its
// TTL so a replayed token is still recognised as revoked until it expires.
func (r *RedisRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.revokeHash(ctx, hashToken(token))
}

func (r *RedisRepository) revokeHash(ctx context.Context, tokenHash string) error {
	key := refreshTokenKey(tokenHash)

	// HSETXX semantics: only touch hashes that still exist
	updated, err := revokeScript.Run(ctx, r.client, []string{key}, time.Now().Unix()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if updated == 0 {
		return ErrRefreshTokenNotFound
	}

	return nil
}

var revokeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "revoked_at", ARGV[1])
return 1
`)

// RevokeAllUserTokens revokes all refresh tokens for a user
func (r *RedisRepository) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	tokenHashes, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}

	for _, tokenHash := range tokenHashes {
		if err := r.revokeHash(ctx, tokenHash); err != nil && !errors.Is(err, ErrRefreshTokenNotFound) {
			return fmt.Errorf("failed to revoke all user tokens: %w", err)
		}
	}

	return nil
}

// CleanupExpiredTokens is a no-op: Redis expires keys on its own
func (r *RedisRepository) CleanupExpiredTokens(ctx context.Context) error {
	return nil
}
