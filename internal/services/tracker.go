package services

import (
	"sort"
	"time"

	"watchclanbattles/internal/models"
)

// SimultaneousWindow is how close two start times must be for the battles to
// be reported as happening at the same time.
const SimultaneousWindow = 5 * time.Minute

// BattleTracker holds the upcoming battles of the clan, sorted by start time.
// It is not safe for concurrent use; a single poll loop owns it.
type BattleTracker struct {
	battles []models.TrackedBattle
	now     func() time.Time
}

func NewBattleTracker() *BattleTracker {
	return NewBattleTrackerWithClock(time.Now)
}

// NewBattleTrackerWithClock creates a tracker that reads the current time
// from now when purging past battles.
func NewBattleTrackerWithClock(now func() time.Time) *BattleTracker {
	return &BattleTracker{now: now}
}

// Merge adds records that are not tracked yet, restores start time order and
// drops battles that already started. It reports whether any battle is still
// tracked afterwards. An empty input is a no-op that returns false, leaving
// the tracked set untouched.
func (t *BattleTracker) Merge(records []models.TrackedBattle) bool {
	if len(records) == 0 {
		return false
	}

	for _, rec := range records {
		if rec.Battle == nil {
			continue
		}
		if rec.Battle.ID == "" {
			rec.Battle.ID = models.BattleID(rec.Battle.ProvinceID, rec.Battle.Time)
		}
		if t.Contains(rec.Battle.ID) {
			continue
		}
		t.battles = append(t.battles, rec)
	}

	sort.SliceStable(t.battles, func(i, j int) bool {
		return t.battles[i].Battle.Time < t.battles[j].Battle.Time
	})

	t.purge(t.now())

	return len(t.battles) > 0
}

// purge drops the leading run of battles whose start is strictly before now.
// The set is sorted, so that run is every past battle.
func (t *BattleTracker) purge(now time.Time) {
	cutoff := now.Unix()
	i := 0
	for i < len(t.battles) && t.battles[i].Battle.Time < cutoff {
		i++
	}
	if i > 0 {
		t.battles = append(t.battles[:0:0], t.battles[i:]...)
	}
}

// Simultaneous returns every other tracked battle starting within
// SimultaneousWindow of target, in start time order.
func (t *BattleTracker) Simultaneous(target *models.Battle) []*models.Battle {
	var simuls []*models.Battle
	window := int64(SimultaneousWindow / time.Second)

	for _, tb := range t.battles {
		if tb.Battle.ID == target.ID {
			continue
		}
		delta := tb.Battle.Time - target.Time
		if delta < 0 {
			delta = -delta
		}
		if delta < window {
			simuls = append(simuls, tb.Battle)
		}
	}
	return simuls
}

func (t *BattleTracker) Contains(battleID string) bool {
	for _, tb := range t.battles {
		if tb.Battle.ID == battleID {
			return true
		}
	}
	return false
}

func (t *BattleTracker) Len() int {
	return len(t.battles)
}

// Entries returns a copy of the tracked set. Battles are shared, so marking
// one announced through an entry is visible to the tracker.
func (t *BattleTracker) Entries() []models.TrackedBattle {
	out := make([]models.TrackedBattle, len(t.battles))
	copy(out, t.battles)
	return out
}

// Pending returns the tracked battles that have not been announced yet.
func (t *BattleTracker) Pending() []models.TrackedBattle {
	var out []models.TrackedBattle
	for _, tb := range t.battles {
		if !tb.Battle.Announced {
			out = append(out, tb)
		}
	}
	return out
}
