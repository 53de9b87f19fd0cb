package services

import (
	"context"
	"errors"

	"watchclanbattles/internal/models"
)

var (
	// ErrHTTP marks a failed request to the API: transport errors, non-200
	// responses and undecodable bodies. Callers skip the cycle on it.
	ErrHTTP = errors.New("wot api request failed")

	// ErrUpstreamStatus marks a response whose status field is not "ok".
	// It points at bad configuration (application id, clan id) and is fatal.
	ErrUpstreamStatus = errors.New("wot api returned error status")
)

// EventSource fetches clan battle records from the game API.
type EventSource interface {
	ClanBattles(ctx context.Context, clanID int64) ([]models.Battle, error)
	ProvinceInfo(ctx context.Context, frontID, provinceID string) (models.Province, error)
	ClanInfo(ctx context.Context, clanID int64) (models.Clan, error)
	PlannedStrongholdBattles(ctx context.Context, clanID int64) ([]models.StrongholdBattle, error)
}
