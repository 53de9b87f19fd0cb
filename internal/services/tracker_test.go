package services

import (
	"testing"
	"time"

	"watchclanbattles/internal/models"
)

const baseTime int64 = 1700000000

func tracked(provinceID, name string, t int64) models.TrackedBattle {
	return models.TrackedBattle{
		Battle: &models.Battle{
			ID:           models.BattleID(provinceID, t),
			Time:         t,
			Type:         models.BattleTypeAttack,
			ProvinceID:   provinceID,
			ProvinceName: name,
		},
		Province: models.Province{ID: provinceID, Name: name},
	}
}

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func TestBattleTracker_Merge(t *testing.T) {
	t.Run("EmptyInputReturnsFalse", func(t *testing.T) {
		now := baseTime
		tracker := NewBattleTrackerWithClock(func() time.Time { return time.Unix(now, 0) })
		tracker.Merge([]models.TrackedBattle{tracked("p1", "Herzele", baseTime+60)})

		// The tracked battle has started; an empty merge must not purge it.
		now = baseTime + 120
		if tracker.Merge(nil) {
			t.Error("Expected false for empty input")
		}
		if tracker.Len() != 1 {
			t.Errorf("Expected tracked set untouched, got %d battles", tracker.Len())
		}
		if !tracker.Contains(models.BattleID("p1", baseTime+60)) {
			t.Error("Expected started battle to survive an empty merge")
		}
	})

	t.Run("SortsByStartTime", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		found := tracker.Merge([]models.TrackedBattle{
			tracked("p3", "C", baseTime+3000),
			tracked("p1", "A", baseTime+1000),
			tracked("p2", "B", baseTime+2000),
		})

		if !found {
			t.Fatal("Expected battles to be found")
		}
		entries := tracker.Entries()
		for i := 1; i < len(entries); i++ {
			if entries[i-1].Battle.Time > entries[i].Battle.Time {
				t.Errorf("Entries not sorted at %d: %d > %d", i, entries[i-1].Battle.Time, entries[i].Battle.Time)
			}
		}
		if entries[0].Province.Name != "A" {
			t.Errorf("Expected A first, got %s", entries[0].Province.Name)
		}
	})

	t.Run("DeduplicatesByID", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		tracker.Merge([]models.TrackedBattle{tracked("p1", "A", baseTime+600)})

		dup := tracked("p1", "A", baseTime+600)
		tracker.Merge([]models.TrackedBattle{dup})

		if tracker.Len() != 1 {
			t.Errorf("Expected 1 battle after duplicate merge, got %d", tracker.Len())
		}
	})

	t.Run("DeduplicatesWithinOneInput", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		found := tracker.Merge([]models.TrackedBattle{
			tracked("p1", "A", baseTime+600),
			tracked("p2", "B", baseTime+1200),
			tracked("p1", "A", baseTime+600),
		})

		if !found {
			t.Fatal("Expected battles to be found")
		}
		if tracker.Len() != 2 {
			t.Errorf("Expected 2 battles from input with a duplicate, got %d", tracker.Len())
		}
	})

	t.Run("KeepsAnnouncedFlagOfExistingEntry", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		first := tracked("p1", "A", baseTime+600)
		tracker.Merge([]models.TrackedBattle{first})
		first.Battle.Announced = true

		tracker.Merge([]models.TrackedBattle{tracked("p1", "A", baseTime+600)})

		if len(tracker.Pending()) != 0 {
			t.Error("Expected re-fetched battle to stay announced")
		}
	})

	t.Run("SameProvinceDifferentTimeIsDistinct", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		tracker.Merge([]models.TrackedBattle{
			tracked("p1", "A", baseTime+600),
			tracked("p1", "A", baseTime+2400),
		})

		if tracker.Len() != 2 {
			t.Errorf("Expected 2 battles, got %d", tracker.Len())
		}
	})

	t.Run("PurgesPastBattles", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		found := tracker.Merge([]models.TrackedBattle{
			tracked("old", "Old", baseTime-1),
			tracked("now", "Now", baseTime),
			tracked("new", "New", baseTime+60),
		})

		if !found {
			t.Fatal("Expected remaining battles to be found")
		}
		if tracker.Contains(models.BattleID("old", baseTime-1)) {
			t.Error("Expected past battle to be purged")
		}
		if !tracker.Contains(models.BattleID("now", baseTime)) {
			t.Error("Expected battle starting now to be kept")
		}
		if tracker.Len() != 2 {
			t.Errorf("Expected 2 battles, got %d", tracker.Len())
		}
	})

	t.Run("AllPastReturnsFalse", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		if tracker.Merge([]models.TrackedBattle{tracked("old", "Old", baseTime-600)}) {
			t.Error("Expected false when every battle is in the past")
		}
		if tracker.Len() != 0 {
			t.Errorf("Expected empty tracker, got %d", tracker.Len())
		}
	})

	t.Run("PurgesPreviouslyTrackedBattles", func(t *testing.T) {
		now := baseTime
		tracker := NewBattleTrackerWithClock(func() time.Time { return time.Unix(now, 0) })
		tracker.Merge([]models.TrackedBattle{tracked("p1", "A", baseTime+60)})

		now = baseTime + 120
		tracker.Merge([]models.TrackedBattle{tracked("p2", "B", baseTime+600)})

		if tracker.Contains(models.BattleID("p1", baseTime+60)) {
			t.Error("Expected started battle to be purged on next merge")
		}
	})

	t.Run("FillsMissingID", func(t *testing.T) {
		tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
		rec := tracked("p1", "A", baseTime+600)
		rec.Battle.ID = ""

		tracker.Merge([]models.TrackedBattle{rec, {Battle: nil}})

		if !tracker.Contains(models.BattleID("p1", baseTime+600)) {
			t.Error("Expected ID to be derived from province and time")
		}
		if tracker.Len() != 1 {
			t.Errorf("Expected nil battle to be skipped, got %d battles", tracker.Len())
		}
	})
}

func TestBattleTracker_Simultaneous(t *testing.T) {
	tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
	target := tracked("t", "Target", baseTime+3600)
	tracker.Merge([]models.TrackedBattle{
		target,
		tracked("near", "Near", baseTime+3600+120),
		tracked("before", "Before", baseTime+3600-299),
		tracked("edge", "Edge", baseTime+3600+300),
		tracked("far", "Far", baseTime+3600+900),
	})

	simuls := tracker.Simultaneous(target.Battle)

	if len(simuls) != 2 {
		t.Fatalf("Expected 2 simultaneous battles, got %d", len(simuls))
	}
	if simuls[0].ProvinceName != "Before" || simuls[1].ProvinceName != "Near" {
		t.Errorf("Expected [Before Near] in start order, got [%s %s]", simuls[0].ProvinceName, simuls[1].ProvinceName)
	}
	for _, b := range simuls {
		if b.ID == target.Battle.ID {
			t.Error("Expected target to be excluded")
		}
	}
}

func TestBattleTracker_Simultaneous_None(t *testing.T) {
	tracker := NewBattleTrackerWithClock(fixedClock(baseTime))
	target := tracked("t", "Target", baseTime+3600)
	tracker.Merge([]models.TrackedBattle{target})

	if simuls := tracker.Simultaneous(target.Battle); len(simuls) != 0 {
		t.Errorf("Expected no simultaneous battles, got %d", len(simuls))
	}
}
