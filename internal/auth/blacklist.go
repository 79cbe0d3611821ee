// internal/auth/blacklist.go

package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Blacklist remembers revoked token ids until they would have expired anyway
type Blacklist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist returns a blacklist backed by redis. A nil client disables revocation.
func NewRedisBlacklist(client *redis.Client) Blacklist {
	return &redisBlacklist{client: client}
}

func blacklistKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

func (b *redisBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if b.client == nil {
		return ErrRevocationUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(tokenID), 1, ttl).Err()
}

func (b *redisBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if b.client == nil {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
