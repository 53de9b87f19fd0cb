package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"watchclanbattles/internal/models"
	"watchclanbattles/internal/notification"
)

// PoppingLead is the warm-up window before a battle's nominal start during
// which the battle "pops". Countdowns are shown to the pop, not the start.
const PoppingLead = 14 * time.Minute

const emblemURL = "http://na.wargaming.net/clans/media/clans/emblems/cl_%s/%d/emblem_64x64.png"

// SimultaneousFinder reports battles that start close to a given battle.
type SimultaneousFinder interface {
	Simultaneous(target *models.Battle) []*models.Battle
}

type FormatterOptions struct {
	ClanTag       string
	Location      *time.Location
	TimezoneLabel string
	// RoundTotal adds "of N" to tournament rounds, N derived from the
	// province attacker count. Unverified against live data, off by default.
	RoundTotal bool
}

// Formatter turns tracked battles into notification units.
type Formatter struct {
	finder SimultaneousFinder
	opts   FormatterOptions
}

func NewFormatter(finder SimultaneousFinder, opts FormatterOptions) *Formatter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Formatter{finder: finder, opts: opts}
}

// Format builds the unit for a battle that has not been announced yet and
// marks it announced. For an already announced battle it returns false and
// leaves the battle untouched.
func (f *Formatter) Format(tb models.TrackedBattle, now time.Time) (notification.Unit, bool) {
	battle := tb.Battle
	if battle == nil || battle.Announced {
		return notification.Unit{}, false
	}

	province, clan := tb.Province, tb.Clan

	provinceText := fmt.Sprintf("*Province:* %s *Map:* %s *Server:*  %s",
		province.Name, province.ArenaName, province.Server)

	startTime := battle.StartTime().In(f.opts.Location)
	minutes := CountdownMinutes(battle.StartTime(), now)

	var timeText string
	if battle.Type == models.BattleTypeAttack && battle.AttackType == models.AttackTypeTournament {
		round := strconv.Itoa(province.RoundNumber)
		if f.opts.RoundTotal {
			if total := RoundTotal(len(province.Attackers)); total > 0 {
				round += " of " + strconv.Itoa(total)
			}
		}
		timeText = fmt.Sprintf("Tournament Round %s begins at %s %s popping in %d minutes",
			round, startTime.Format("15:04"), f.opts.TimezoneLabel, minutes)
	} else {
		timeText = fmt.Sprintf("*%s* begins at %s %s popping in %d minutes",
			titleCase(battle.Type), startTime.Format("15:04"), f.opts.TimezoneLabel, minutes)
	}

	simulText := ""
	if f.finder != nil {
		if simuls := f.finder.Simultaneous(battle); len(simuls) > 0 {
			names := make([]string, 0, len(simuls))
			for _, b := range simuls {
				names = append(names, b.ProvinceName)
			}
			simulText = fmt.Sprintf("There are %d battles occurring at this time: %s, %s.",
				len(simuls)+1, province.Name, strings.Join(names, ", "))
		}
	}

	level := notification.LevelDanger
	if battle.Type == models.BattleTypeDefence {
		level = notification.LevelGood
	}

	unit := notification.Unit{
		Fallback: fmt.Sprintf("Upcoming CW battle vs. %s", clan.Tag),
		Title:    fmt.Sprintf(":%[1]s: %[1]s vs. %[2]s :fire:", f.opts.ClanTag, clan.Tag),
		Text:     fmt.Sprintf("%s\n%s\n%s", provinceText, timeText, simulText),
		Level:    level,
		ThumbURL: EmblemURL(clan.ID),
	}

	battle.Announced = true
	return unit, true
}

// CountdownMinutes is the whole number of minutes from now until the battle
// pops, rounded down.
func CountdownMinutes(start, now time.Time) int {
	minutesUntil := start.Sub(now).Seconds() / 60
	return int(math.Floor(minutesUntil - PoppingLead.Minutes()))
}

// RoundTotal estimates the number of tournament rounds from the number of
// attacking clans. Returns 0 when there are no attackers.
func RoundTotal(attackers int) int {
	if attackers <= 0 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(attackers))))
}

// EmblemURL is the 64x64 emblem of a clan on the NA clan portal.
func EmblemURL(clanID int64) string {
	id := strconv.FormatInt(clanID, 10)
	suffix := id
	if len(id) > 3 {
		suffix = id[len(id)-3:]
	}
	return fmt.Sprintf(emblemURL, suffix, clanID)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
