package models

import (
	"strconv"
	"time"
)

const (
	BattleTypeAttack  = "attack"
	BattleTypeDefence = "defence"

	AttackTypeTournament = "tournament"
)

// Battle is one scheduled clan wars battle as reported by the global map API.
// Announced is owned by the tracker and flips to true once a notification
// has been produced for the battle.
type Battle struct {
	ID           string `json:"-"`
	Time         int64  `json:"time"`
	Type         string `json:"type"`
	AttackType   string `json:"attack_type"`
	CompetitorID int64  `json:"competitor_id"`
	ProvinceID   string `json:"province_id"`
	ProvinceName string `json:"province_name"`
	FrontID      string `json:"front_id"`
	FrontName    string `json:"front_name"`
	ArenaName    string `json:"arena_name"`
	VehicleLevel int    `json:"vehicle_level"`
	Announced    bool   `json:"-"`
}

// BattleID identifies a battle by its province and start time. Distinct
// (province, time) pairs never share an ID.
func BattleID(provinceID string, startTime int64) string {
	return provinceID + "@" + strconv.FormatInt(startTime, 10)
}

// StartTime returns the battle start as a time.Time.
func (b *Battle) StartTime() time.Time {
	return time.Unix(b.Time, 0)
}

type Clan struct {
	ID   int64  `json:"clan_id"`
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

type Province struct {
	ID          string  `json:"province_id"`
	Name        string  `json:"province_name"`
	ArenaName   string  `json:"arena_name"`
	Server      string  `json:"server"`
	RoundNumber int     `json:"round_number"`
	Attackers   []int64 `json:"attackers"`
	Competitors []int64 `json:"competitors"`
	FrontID     string  `json:"front_id"`
	PrimeTime   string  `json:"prime_time"`
	OwnerClanID int64   `json:"owner_clan_id"`
}

// TrackedBattle groups a battle with the province and opposing clan records
// fetched for it.
type TrackedBattle struct {
	Battle   *Battle
	Province Province
	Clan     Clan
}

// StrongholdBattle is a planned stronghold battle for the clan.
type StrongholdBattle struct {
	PlannedDate     int64  `json:"battle_planned_date"`
	BattleType      string `json:"battle_type"`
	AttackerClanTag string `json:"attacker_clan_tag"`
	DefenderClanTag string `json:"defender_clan_tag"`
}
