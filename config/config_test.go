package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.UpdateInterval() != 60*time.Second {
		t.Errorf("Expected default interval 60s, got %v", cfg.UpdateInterval())
	}
	if cfg.APIBaseURL != "https://api.worldoftanks.com" {
		t.Errorf("Unexpected default API base URL %q", cfg.APIBaseURL)
	}
	if cfg.RequestRate != 1 {
		t.Errorf("Expected 1 request per second, got %v", cfg.RequestRate)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
application_id: abc123
clan_id: 1000000001
clan_tag: RDDT
update_interval: 30
slack_url: https://hooks.slack.com/services/x
tournament_round_total: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ApplicationID != "abc123" || cfg.ClanID != 1000000001 || cfg.ClanTag != "RDDT" {
		t.Errorf("Unexpected identity settings: %+v", cfg)
	}
	if cfg.UpdateInterval() != 30*time.Second {
		t.Errorf("Expected 30s interval, got %v", cfg.UpdateInterval())
	}
	if !cfg.TournamentRoundTotal {
		t.Error("Expected tournament round total enabled")
	}
	if cfg.BotName != "battle-notifier" {
		t.Errorf("Expected default bot name to survive, got %q", cfg.BotName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"application_id": "abc123",
		"clan_id": 42,
		"clan_tag": "RDDT",
		"bot_name": "cw-bot",
		"icon_emoji": "rddt",
		"channel_name": "#clanwars"
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BotName != "cw-bot" || cfg.ChannelName != "#clanwars" || cfg.ClanID != 42 {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "clan_tag: FILE\nupdate_interval: 30\n")
	t.Setenv("WOT_CLAN_TAG", "ENV")
	t.Setenv("WOT_CLAN_ID", "77")
	t.Setenv("UPDATE_INTERVAL_SECONDS", "not-a-number")
	t.Setenv("STATE_BACKEND", "file")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClanTag != "ENV" {
		t.Errorf("Expected env to win, got %q", cfg.ClanTag)
	}
	if cfg.ClanID != 77 {
		t.Errorf("Expected clan id 77, got %d", cfg.ClanID)
	}
	if cfg.UpdateIntervalSeconds != 30 {
		t.Errorf("Expected invalid env interval to be ignored, got %d", cfg.UpdateIntervalSeconds)
	}
	if cfg.StateBackend != "file" {
		t.Errorf("Expected state backend from env, got %q", cfg.StateBackend)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}

	path := writeFile(t, "config.yaml", "clan_id: [not an int\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for unparsable config file")
	}
}

func TestValidate_Missing(t *testing.T) {
	err := (&Config{}).Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, key := range []string{"application_id", "clan_id", "clan_tag", "update_interval"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Expected %s to be reported, got %v", key, err)
		}
	}
}

func TestLocation(t *testing.T) {
	if loc := (&Config{Timezone: "Not/AZone"}).Location(); loc != time.UTC {
		t.Errorf("Expected UTC fallback, got %v", loc)
	}
	if loc := (&Config{}).Location(); loc != time.UTC {
		t.Errorf("Expected UTC for empty timezone, got %v", loc)
	}
}
