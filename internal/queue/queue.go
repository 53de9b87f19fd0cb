package queue

import (
	"context"
	"time"

	"watchclanbattles/internal/models"
)

// PollTaskQueue schedules the next poll of a clan's battles.
// Implementations exist for Cloud Tasks and Redis (asynq).
type PollTaskQueue interface {
	// Enqueue schedules a poll task for delivery at the specified time.
	Enqueue(ctx context.Context, payload models.Payload, deliverAt time.Time) error
	Close() error
}
