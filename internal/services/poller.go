package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"watchclanbattles/internal/metrics"
	"watchclanbattles/internal/models"
	"watchclanbattles/internal/notification"
)

// Dispatcher delivers a batch to every configured notifier.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch notification.Batch) []notification.NotificationResult
}

// AnnouncedStore remembers announced battle IDs across restarts.
type AnnouncedStore interface {
	IsAnnounced(ctx context.Context, battleID string) (bool, error)
	MarkAnnounced(ctx context.Context, battleID string, expiresAt time.Time) error
}

// MessageOptions is the message-level metadata sent with every batch.
type MessageOptions struct {
	Text      string
	Username  string
	IconEmoji string
	Channel   string
}

// CycleResult holds the outcome of one poll cycle.
type CycleResult struct {
	NewBattles int
	Found      bool
	Announced  int
}

// BattlePoller runs poll cycles: fetch battles, merge them into the tracker,
// format the ones not yet announced and hand them to the dispatcher.
type BattlePoller struct {
	Source     EventSource
	Tracker    *BattleTracker
	Formatter  *Formatter
	Dispatcher Dispatcher
	Store      AnnouncedStore   // optional
	Metrics    *metrics.Metrics // optional
	Logger     zerolog.Logger
	ClanID     int64
	Message    MessageOptions

	// DryRun formats battles without consuming them: nothing is marked
	// announced, so a later delivering cycle still reports them.
	DryRun bool

	Now func() time.Time
}

func (p *BattlePoller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// WithDispatcher returns a shallow copy of p delivering through d. The copy
// shares the tracker, so battles announced through it stay announced.
func (p *BattlePoller) WithDispatcher(d Dispatcher) *BattlePoller {
	cp := *p
	cp.Dispatcher = d
	return &cp
}

// ForPayload returns a copy of p delivering through d for one queued poll.
// A payload with should_notify=false runs as a dry run.
func (p *BattlePoller) ForPayload(payload models.Payload, d Dispatcher) (*BattlePoller, error) {
	if err := CheckPayloadClan(payload, p.ClanID); err != nil {
		return nil, err
	}
	cp := p.WithDispatcher(d)
	cp.DryRun = payload.ShouldNotify != nil && !*payload.ShouldNotify
	return cp, nil
}

// Run polls every interval until ctx is cancelled or a cycle fails with an
// unrecoverable error. It returns ctx.Err() on cancellation.
func (p *BattlePoller) Run(ctx context.Context, interval time.Duration) error {
	p.Logger.Info().
		Int64("clan_id", p.ClanID).
		Dur("interval", interval).
		Msg("Battle notifier started")

	for {
		if _, err := p.RunCycle(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			p.Logger.Warn().Msg("Interrupted, shutting down")
			return ctx.Err()
		case <-time.After(interval):
			p.Logger.Info().Msg("Sleep cycle completed")
		}
	}
}

// RunCycle performs a single poll. Fetch failures are logged and treat the
// cycle as having no new battles; only ErrUpstreamStatus is returned.
func (p *BattlePoller) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	defer func() { p.Metrics.ObserveCycle(time.Since(start)) }()

	var result CycleResult

	records, err := p.fetchNewBattles(ctx)
	if err != nil {
		if errors.Is(err, ErrUpstreamStatus) {
			p.Logger.Error().Err(err).Msg("WoT API returned error status")
			return result, err
		}
		p.Logger.Error().Err(err).Msg("HTTP Error when getting battles")
		p.Metrics.FetchFailed()
		records = nil
	}
	result.NewBattles = len(records)

	result.Found = p.Tracker.Merge(records)
	p.Metrics.SetTracked(p.Tracker.Len())
	if result.Found {
		p.Logger.Info().Int("tracked", p.Tracker.Len()).Msg("Found battle")
	} else if len(p.Tracker.Pending()) == 0 {
		return result, nil
	}

	units := p.announcePending(ctx)
	result.Announced = len(units)
	if len(units) == 0 {
		return result, nil
	}

	batch := notification.Batch{
		Units:     units,
		Text:      p.Message.Text,
		Username:  p.Message.Username,
		IconEmoji: p.Message.IconEmoji,
		Channel:   p.Message.Channel,
	}
	for _, res := range p.Dispatcher.Dispatch(ctx, batch) {
		p.Metrics.NotificationSent(res.Notifier, res.Success)
		if !res.Success {
			p.Logger.Error().Err(res.Error).Str("notifier", res.Notifier).Msg("Notification failed")
			continue
		}
		p.Logger.Info().Str("notifier", res.Notifier).Str("id", res.ID).Msg("Notification sent")
	}

	return result, nil
}

// fetchNewBattles fetches the clan's battles and resolves province and
// opponent records for those the tracker does not know yet.
func (p *BattlePoller) fetchNewBattles(ctx context.Context) ([]models.TrackedBattle, error) {
	battles, err := p.Source.ClanBattles(ctx, p.ClanID)
	if err != nil {
		return nil, err
	}

	var records []models.TrackedBattle
	for i := range battles {
		battle := &battles[i]
		if battle.ID == "" {
			battle.ID = models.BattleID(battle.ProvinceID, battle.Time)
		}
		if p.Tracker.Contains(battle.ID) {
			continue
		}

		province, err := p.Source.ProvinceInfo(ctx, battle.FrontID, battle.ProvinceID)
		if err != nil {
			return nil, err
		}
		clan, err := p.Source.ClanInfo(ctx, battle.CompetitorID)
		if err != nil {
			return nil, err
		}

		if p.Store != nil {
			announced, err := p.Store.IsAnnounced(ctx, battle.ID)
			if err != nil {
				p.Logger.Warn().Err(err).Str("battle_id", battle.ID).Msg("Failed to read announced state")
			}
			battle.Announced = announced
		}

		records = append(records, models.TrackedBattle{Battle: battle, Province: province, Clan: clan})
	}
	return records, nil
}

func (p *BattlePoller) announcePending(ctx context.Context) []notification.Unit {
	now := p.now()
	var units []notification.Unit

	for _, tb := range p.Tracker.Pending() {
		// Left pending by a dry run and started since.
		if tb.Battle.Time < now.Unix() {
			continue
		}
		unit, ok := p.Formatter.Format(tb, now)
		if !ok {
			continue
		}
		units = append(units, unit)

		if p.DryRun {
			tb.Battle.Announced = false
			continue
		}
		p.Metrics.BattleAnnounced(tb.Battle.Type)

		if p.Store != nil {
			expiresAt := tb.Battle.StartTime().Add(time.Hour)
			if err := p.Store.MarkAnnounced(ctx, tb.Battle.ID, expiresAt); err != nil {
				p.Logger.Warn().Err(err).Str("battle_id", tb.Battle.ID).Msg("Failed to persist announced state")
			}
		}
	}
	return units
}

// ReportStrongholds sends the clan's planned stronghold battles as one
// message. It returns false when there was nothing to send.
func (p *BattlePoller) ReportStrongholds(ctx context.Context) (bool, error) {
	battles, err := p.Source.PlannedStrongholdBattles(ctx, p.ClanID)
	if err != nil {
		return false, err
	}

	unit, ok := p.Formatter.FormatStronghold(battles, p.now())
	if !ok {
		p.Logger.Info().Msg("No sh battles to report")
		return false, nil
	}

	batch := notification.Batch{
		Units:     []notification.Unit{unit},
		Text:      p.Message.Text,
		Username:  p.Message.Username,
		IconEmoji: p.Message.IconEmoji,
		Channel:   p.Message.Channel,
	}
	for _, res := range p.Dispatcher.Dispatch(ctx, batch) {
		p.Metrics.NotificationSent(res.Notifier, res.Success)
		if !res.Success {
			p.Logger.Error().Err(res.Error).Str("notifier", res.Notifier).Msg("Stronghold notification failed")
		}
	}
	return true, nil
}
