package queue

import (
	"context"
	"fmt"
	"time"

	"watchclanbattles/internal/models"
	"watchclanbattles/internal/tasks"

	"github.com/hibiken/asynq"
)

// DefaultQueue is the asynq queue poll tasks are enqueued to.
const DefaultQueue = "default"

// AsynqQueue implements PollTaskQueue on a Redis-backed asynq client.
type AsynqQueue struct {
	client   *asynq.Client
	redisOpt asynq.RedisClientOpt
}

func NewAsynqQueue(redisOpt asynq.RedisClientOpt) *AsynqQueue {
	return &AsynqQueue{client: asynq.NewClient(redisOpt), redisOpt: redisOpt}
}

func (q *AsynqQueue) Enqueue(ctx context.Context, payload models.Payload, deliverAt time.Time) error {
	task, err := tasks.NewPollBattlesTask(payload)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(deliverAt),
		asynq.Queue(DefaultQueue),
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// QueueStats is a snapshot of one asynq queue.
type QueueStats struct {
	Pending   int           `json:"pending"`
	Active    int           `json:"active"`
	Scheduled int           `json:"scheduled"`
	Retry     int           `json:"retry"`
	Archived  int           `json:"archived"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Paused    bool          `json:"paused"`
	Latency   time.Duration `json:"latency"`
}

// Stats reads the state of the poll queue from Redis.
func (q *AsynqQueue) Stats() (QueueStats, error) {
	inspector := asynq.NewInspector(q.redisOpt)
	defer inspector.Close()

	info, err := inspector.GetQueueInfo(DefaultQueue)
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to get stats for queue %s: %w", DefaultQueue, err)
	}
	return QueueStats{
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Processed: info.Processed,
		Failed:    info.Failed,
		Paused:    info.Paused,
		Latency:   info.Latency,
	}, nil
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}
