package tasks

import (
	"encoding/json"
	"fmt"

	"watchclanbattles/internal/models"

	"github.com/hibiken/asynq"
)

const (
	TypePollBattles = "clan:poll_battles"
)

// NewPollBattlesTask creates a new asynq task from a poll payload.
func NewPollBattlesTask(payload models.Payload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePollBattles, data), nil
}

// ParsePollBattlesPayload deserializes a payload from an asynq task.
func ParsePollBattlesPayload(t *asynq.Task) (models.Payload, error) {
	var payload models.Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
