package services

import (
	"errors"
	"fmt"
	"time"

	"watchclanbattles/internal/models"
)

// ShouldSkipExecution returns true if now is past the payload's execution end.
// A payload without an execution end never expires.
func ShouldSkipExecution(payload models.Payload, now time.Time) (bool, error) {
	if payload.ExecutionEnd == nil {
		return false, nil
	}
	executionEnd, err := time.Parse(time.RFC3339, *payload.ExecutionEnd)
	if err != nil {
		return true, fmt.Errorf("invalid execution_end format: %w", err)
	}
	return now.After(executionEnd), nil
}

// ShouldReschedule reports whether another poll should be queued after a
// cycle. Polling continues until the execution window closes; a fatal
// upstream error stops it.
func ShouldReschedule(payload models.Payload, cycleErr error, now time.Time) bool {
	if cycleErr != nil {
		return false
	}
	skip, err := ShouldSkipExecution(payload, now)
	if err != nil {
		return false
	}
	return !skip
}

// ErrForeignClan marks a payload addressed to a clan other than the one the
// poller tracks. Units are titled with the configured clan tag, so a
// poller serves exactly one clan.
var ErrForeignClan = errors.New("payload clan does not match configured clan")

// CheckPayloadClan accepts a payload without a clan id or with the
// configured one.
func CheckPayloadClan(payload models.Payload, clanID int64) error {
	if payload.ClanID != 0 && payload.ClanID != clanID {
		return fmt.Errorf("%w: got %d, tracking %d", ErrForeignClan, payload.ClanID, clanID)
	}
	return nil
}
