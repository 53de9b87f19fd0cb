package services

import (
	"fmt"
	"sort"
	"time"

	"watchclanbattles/internal/models"
	"watchclanbattles/internal/notification"
)

const strongholdColor notification.Level = "#D00000"

// FormatStronghold renders planned stronghold battles as one unit with a
// field per battle, earliest first. Returns false when there is nothing to
// report.
func (f *Formatter) FormatStronghold(battles []models.StrongholdBattle, now time.Time) (notification.Unit, bool) {
	if len(battles) == 0 {
		return notification.Unit{}, false
	}

	sorted := make([]models.StrongholdBattle, len(battles))
	copy(sorted, battles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PlannedDate < sorted[j].PlannedDate
	})

	fields := make([]notification.Field, 0, len(sorted))
	for _, b := range sorted {
		start := time.Unix(b.PlannedDate, 0)
		until := start.Sub(now)
		if until < 0 {
			until = 0
		}
		hours := int(until.Hours())
		minutes := int(until.Minutes()) % 60
		local := start.In(f.opts.Location)

		fields = append(fields, notification.Field{
			Title: fmt.Sprintf(":siren: Stronghold %s :siren:", b.BattleType),
			Value: fmt.Sprintf(":%s: %s vs. %s :fire:\nSpecial pops in %d hour(s) and %d minute(s) [%s at %s %s]",
				f.opts.ClanTag, b.AttackerClanTag, b.DefenderClanTag,
				hours, minutes,
				local.Format("01/02/2006"), local.Format("15:04"), f.opts.TimezoneLabel),
		})
	}

	return notification.Unit{
		Fallback: "Upcoming stronghold battle",
		Pretext:  "List of upcoming Stronghold battles:",
		Level:    strongholdColor,
		Fields:   fields,
	}, true
}
