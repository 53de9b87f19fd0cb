package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "battle_notifier:announced:"

// RedisStore keeps one key per announced battle, expiring with the battle.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) IsAnnounced(ctx context.Context, battleID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+battleID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", battleID, err)
	}
	return n > 0, nil
}

func (s *RedisStore) MarkAnnounced(ctx context.Context, battleID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+battleID, expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", battleID, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
