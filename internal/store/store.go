// Package store persists announced battle IDs so a restarted notifier does
// not announce the same battle twice.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"watchclanbattles/config"
)

var ErrUnknownBackend = errors.New("unknown state backend")

// Store remembers announced battles until their expiry.
type Store interface {
	IsAnnounced(ctx context.Context, battleID string) (bool, error)
	MarkAnnounced(ctx context.Context, battleID string, expiresAt time.Time) error
}

// New builds the store selected by cfg.StateBackend. An empty backend
// disables persistence and returns a nil Store. The redis store holds a
// connection pool; callers close it through io.Closer.
func New(cfg *config.Config) (Store, error) {
	switch cfg.StateBackend {
	case "":
		return nil, nil
	case "file":
		return NewFileStore(cfg.StatePath)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, ""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StateBackend)
	}
}
