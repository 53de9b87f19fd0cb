package tasks

import (
	"context"
	"fmt"
	"time"

	"watchclanbattles/config"
	"watchclanbattles/internal/models"
	"watchclanbattles/internal/notification"
	"watchclanbattles/internal/services"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskEnqueuer abstracts the ability to enqueue tasks, enabling test mocking.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PollBattlesHandler runs one poll cycle per task and queues the next one.
// The poller, and with it the tracked battles, lives as long as the worker.
type PollBattlesHandler struct {
	cfg      *config.Config
	poller   *services.BattlePoller
	enqueuer TaskEnqueuer
	logger   zerolog.Logger
}

func NewPollBattlesHandler(cfg *config.Config, poller *services.BattlePoller, enqueuer TaskEnqueuer, logger zerolog.Logger) *PollBattlesHandler {
	return &PollBattlesHandler{cfg: cfg, poller: poller, enqueuer: enqueuer, logger: logger}
}

func (h *PollBattlesHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := ParsePollBattlesPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse task payload: %w", err)
	}

	now := time.Now()
	skip, err := services.ShouldSkipExecution(payload, now)
	if err != nil {
		return fmt.Errorf("error checking execution window: %w", err)
	}
	if skip {
		h.logger.Info().Int64("clan_id", payload.ClanID).Msg("Execution window expired, task complete")
		return nil
	}

	dispatcher := notification.NewServiceForPayload(notification.OptionsFromConfig(h.cfg), payload.ShouldNotify, h.logger)
	defer dispatcher.Close()

	poller, err := h.poller.ForPayload(payload, dispatcher)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	_, cycleErr := poller.RunCycle(ctx)
	if cycleErr != nil {
		// Retrying will not fix a rejected application or clan id.
		h.logger.Error().Err(cycleErr).Msg("Poll cycle failed, not rescheduling")
		return fmt.Errorf("%w: %w", cycleErr, asynq.SkipRetry)
	}

	if services.ShouldReschedule(payload, cycleErr, time.Now()) {
		if err := h.scheduleNextCheck(payload); err != nil {
			return fmt.Errorf("failed to schedule next check for clan %d: %w", payload.ClanID, err)
		}
	}

	return nil
}

func (h *PollBattlesHandler) scheduleNextCheck(payload models.Payload) error {
	task, err := NewPollBattlesTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	interval := h.cfg.UpdateInterval()
	info, err := h.enqueuer.Enqueue(task, asynq.ProcessIn(interval))
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	h.logger.Info().
		Int64("clan_id", payload.ClanID).
		Str("task_id", info.ID).
		Dur("process_in", interval).
		Msg("Scheduled next poll")
	return nil
}
