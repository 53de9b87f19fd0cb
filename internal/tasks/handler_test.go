package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"watchclanbattles/config"
	"watchclanbattles/internal/models"
	"watchclanbattles/internal/services"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// mockEnqueuer captures enqueued tasks for assertions.
type mockEnqueuer struct {
	mu       sync.Mutex
	enqueued []enqueuedTask
	err      error
}

type enqueuedTask struct {
	task *asynq.Task
	opts []asynq.Option
}

func (m *mockEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	m.enqueued = append(m.enqueued, enqueuedTask{task: task, opts: opts})
	return &asynq.TaskInfo{
		ID:    "test-task-id",
		Queue: "default",
	}, nil
}

func (m *mockEnqueuer) taskCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.enqueued)
}

// mockSource returns a fixed battle list.
type mockSource struct {
	battles []models.Battle
	err     error
	clanIDs []int64
}

func (m *mockSource) ClanBattles(ctx context.Context, clanID int64) ([]models.Battle, error) {
	m.clanIDs = append(m.clanIDs, clanID)
	return m.battles, m.err
}

func (m *mockSource) ProvinceInfo(ctx context.Context, frontID, provinceID string) (models.Province, error) {
	return models.Province{ID: provinceID, Name: provinceID}, nil
}

func (m *mockSource) ClanInfo(ctx context.Context, clanID int64) (models.Clan, error) {
	return models.Clan{ID: clanID, Tag: "ENEMY"}, nil
}

func (m *mockSource) PlannedStrongholdBattles(ctx context.Context, clanID int64) ([]models.StrongholdBattle, error) {
	return nil, nil
}

func newTestHandler(src services.EventSource, enqueuer TaskEnqueuer) *PollBattlesHandler {
	cfg := &config.Config{UpdateIntervalSeconds: 60, ClanID: 1}
	tracker := services.NewBattleTracker()
	poller := &services.BattlePoller{
		Source:    src,
		Tracker:   tracker,
		Formatter: services.NewFormatter(tracker, services.FormatterOptions{ClanTag: "RDDT"}),
		Logger:    zerolog.Nop(),
		ClanID:    cfg.ClanID,
	}
	return NewPollBattlesHandler(cfg, poller, enqueuer, zerolog.Nop())
}

func payloadTask(t *testing.T, payload models.Payload) *asynq.Task {
	t.Helper()
	data, _ := json.Marshal(payload)
	return asynq.NewTask(TypePollBattles, data)
}

func TestProcessTask_InvalidPayload(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	h := newTestHandler(&mockSource{}, enqueuer)

	task := asynq.NewTask(TypePollBattles, []byte("invalid-json"))

	err := h.ProcessTask(context.Background(), task)
	if err == nil {
		t.Error("Expected error for invalid payload, got nil")
	}
}

func TestProcessTask_ExpiredExecutionWindow(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	src := &mockSource{}
	h := newTestHandler(src, enqueuer)

	past := time.Now().Add(-1 * time.Hour).Format(time.RFC3339)
	err := h.ProcessTask(context.Background(), payloadTask(t, models.Payload{ExecutionEnd: &past}))
	if err != nil {
		t.Errorf("Expected no error for expired window, got: %v", err)
	}

	if enqueuer.taskCount() != 0 {
		t.Errorf("Expected 0 enqueued tasks for expired window, got %d", enqueuer.taskCount())
	}
	if len(src.clanIDs) != 0 {
		t.Error("Expected no poll after the execution window")
	}
}

func TestProcessTask_InvalidExecutionEndFormat(t *testing.T) {
	h := newTestHandler(&mockSource{}, &mockEnqueuer{})

	invalid := "not-a-date"
	err := h.ProcessTask(context.Background(), payloadTask(t, models.Payload{ExecutionEnd: &invalid}))
	if err == nil {
		t.Error("Expected error for invalid execution end format, got nil")
	}
}

func TestProcessTask_PollsAndReschedules(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	src := &mockSource{battles: []models.Battle{{
		Time:       time.Now().Add(30 * time.Minute).Unix(),
		Type:       models.BattleTypeDefence,
		ProvinceID: "herzele",
	}}}
	h := newTestHandler(src, enqueuer)

	off := false
	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	err := h.ProcessTask(context.Background(), payloadTask(t, models.Payload{
		ClanID:       1,
		ExecutionEnd: &future,
		ShouldNotify: &off,
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(src.clanIDs) != 1 || src.clanIDs[0] != 1 {
		t.Errorf("Expected poll for clan 1, got %v", src.clanIDs)
	}
	if h.poller.Tracker.Len() != 1 {
		t.Errorf("Expected battle tracked across tasks, got %d", h.poller.Tracker.Len())
	}
	if enqueuer.taskCount() != 1 {
		t.Errorf("Expected 1 enqueued task, got %d", enqueuer.taskCount())
	}
}

func TestProcessTask_ForeignClanRejected(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	src := &mockSource{}
	h := newTestHandler(src, enqueuer)

	err := h.ProcessTask(context.Background(), payloadTask(t, models.Payload{ClanID: 42}))
	if !errors.Is(err, services.ErrForeignClan) || !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("Expected non-retryable foreign clan error, got %v", err)
	}
	if len(src.clanIDs) != 0 || enqueuer.taskCount() != 0 {
		t.Error("Expected no poll and no reschedule for a foreign clan")
	}
}

func TestProcessTask_UpstreamStatusStopsPolling(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	src := &mockSource{err: services.ErrUpstreamStatus}
	h := newTestHandler(src, enqueuer)

	off := false
	err := h.ProcessTask(context.Background(), payloadTask(t, models.Payload{ShouldNotify: &off}))
	if !errors.Is(err, services.ErrUpstreamStatus) || !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("Expected non-retryable upstream error, got %v", err)
	}
	if enqueuer.taskCount() != 0 {
		t.Errorf("Expected no reschedule, got %d tasks", enqueuer.taskCount())
	}
}

func TestScheduleNextCheck_EnqueuesCalled(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	h := newTestHandler(&mockSource{}, enqueuer)

	err := h.scheduleNextCheck(models.Payload{ClanID: 1000000001})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if enqueuer.taskCount() != 1 {
		t.Errorf("Expected 1 enqueued task, got %d", enqueuer.taskCount())
	}

	enqueuer.mu.Lock()
	defer enqueuer.mu.Unlock()
	if enqueuer.enqueued[0].task.Type() != TypePollBattles {
		t.Errorf("Expected task type %q, got %q", TypePollBattles, enqueuer.enqueued[0].task.Type())
	}

	parsed, err := ParsePollBattlesPayload(enqueuer.enqueued[0].task)
	if err != nil {
		t.Fatalf("Failed to parse enqueued task payload: %v", err)
	}
	if parsed.ClanID != 1000000001 {
		t.Errorf("Expected clan ID %d in enqueued task, got %d", 1000000001, parsed.ClanID)
	}
}

func TestScheduleNextCheck_EnqueueError(t *testing.T) {
	enqueuer := &mockEnqueuer{err: asynq.ErrDuplicateTask}
	h := newTestHandler(&mockSource{}, enqueuer)

	err := h.scheduleNextCheck(models.Payload{ClanID: 1})
	if err == nil {
		t.Error("Expected error when enqueue fails, got nil")
	}
}
