package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watchclanbattles/config"
	"watchclanbattles/internal/models"
	"watchclanbattles/internal/tasks"

	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// CloudTasksQueue implements PollTaskQueue using Google Cloud Tasks. Each
// task is an HTTP POST of the payload to the poll handler.
type CloudTasksQueue struct {
	client tasks.CloudTasksClient
	cfg    *config.Config
	logger zerolog.Logger
}

// NewCloudTasksQueue creates a new CloudTasksQueue.
func NewCloudTasksQueue(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*CloudTasksQueue, error) {
	client, err := tasks.NewCloudTasksClient(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}
	return NewCloudTasksQueueWithClient(client, cfg, logger), nil
}

func NewCloudTasksQueueWithClient(client tasks.CloudTasksClient, cfg *config.Config, logger zerolog.Logger) *CloudTasksQueue {
	return &CloudTasksQueue{client: client, cfg: cfg, logger: logger}
}

func (q *CloudTasksQueue) queuePath() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s",
		q.cfg.ProjectID, q.cfg.LocationID, q.cfg.QueueID)
}

func (q *CloudTasksQueue) Enqueue(ctx context.Context, payload models.Payload, deliverAt time.Time) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := &taskspb.Task{
		MessageType: &taskspb.Task_HttpRequest{
			HttpRequest: &taskspb.HttpRequest{
				HttpMethod: taskspb.HttpMethod_POST,
				Url:        q.cfg.HandlerAddress,
				Headers: map[string]string{
					"Content-Type": "application/json",
				},
				Body: payloadJSON,
			},
		},
		ScheduleTime: timestamppb.New(deliverAt),
	}

	req := &taskspb.CreateTaskRequest{
		Parent: q.queuePath(),
		Task:   task,
	}

	q.logger.Info().
		Int64("clan_id", payload.ClanID).
		Str("deliver_at", deliverAt.Format(time.RFC3339)).
		Msg("Enqueuing poll task")

	if _, err := q.client.CreateTask(ctx, req); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

func (q *CloudTasksQueue) Close() error {
	return q.client.Close()
}
