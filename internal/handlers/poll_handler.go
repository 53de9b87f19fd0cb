package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"watchclanbattles/config"
	"watchclanbattles/internal/models"
	"watchclanbattles/internal/notification"
	"watchclanbattles/internal/queue"
	"watchclanbattles/internal/services"

	"github.com/rs/zerolog"
)

// PollHandler serves one poll cycle per request and schedules the next
// request through the queue. It backs the HTTP function deployment.
// Requests may arrive concurrently; cycles run one at a time.
type PollHandler struct {
	mu     sync.Mutex
	cfg    *config.Config
	poller *services.BattlePoller
	queue  queue.PollTaskQueue
	logger zerolog.Logger
	now    func() time.Time
}

func NewPollHandler(cfg *config.Config, poller *services.BattlePoller, q queue.PollTaskQueue, logger zerolog.Logger) *PollHandler {
	return &PollHandler{cfg: cfg, poller: poller, queue: q, logger: logger, now: time.Now}
}

func (h *PollHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := parseRequestPayload(r)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Rejecting poll request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	skip, err := services.ShouldSkipExecution(payload, h.now())
	if err != nil {
		http.Error(w, "Invalid execution_end format", http.StatusBadRequest)
		return
	}
	if skip {
		h.logger.Info().Msg("Current time is after execution end, skipping execution")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	dispatcher := notification.NewServiceForPayload(notification.OptionsFromConfig(h.cfg), payload.ShouldNotify, h.logger)
	defer dispatcher.Close()

	poller, err := h.poller.ForPayload(payload, dispatcher)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Rejecting poll request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The tracker is shared by every request.
	h.mu.Lock()
	result, cycleErr := poller.RunCycle(r.Context())
	h.mu.Unlock()
	if cycleErr != nil {
		h.logger.Error().Err(cycleErr).Msg("Poll cycle failed, not rescheduling")
		status := http.StatusInternalServerError
		if errors.Is(cycleErr, services.ErrUpstreamStatus) {
			status = http.StatusBadGateway
		}
		http.Error(w, cycleErr.Error(), status)
		return
	}

	if services.ShouldReschedule(payload, cycleErr, h.now()) {
		if err := h.scheduleNextCheck(r.Context(), payload); err != nil {
			h.logger.Error().Err(err).Msg("Failed to schedule next check")
			http.Error(w, "Failed to schedule next check", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *PollHandler) scheduleNextCheck(ctx context.Context, payload models.Payload) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	deliverAt := h.now().Add(h.cfg.UpdateInterval())
	if err := h.queue.Enqueue(ctx, payload, deliverAt); err != nil {
		return err
	}
	h.logger.Info().Str("deliver_at", deliverAt.Format(time.RFC3339)).Msg("Successfully scheduled next check")
	return nil
}

// parseRequestPayload accepts an empty body as a payload with no limits.
func parseRequestPayload(r *http.Request) (models.Payload, error) {
	var payload models.Payload

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return payload, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, fmt.Errorf("invalid request payload: %w", err)
	}

	return payload, nil
}
