// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env string `yaml:"env"`

	// Wargaming API
	ApplicationID string  `yaml:"application_id"`
	ClanID        int64   `yaml:"clan_id"`
	ClanTag       string  `yaml:"clan_tag"`
	APIBaseURL    string  `yaml:"api_base_url"`
	RequestRate   float64 `yaml:"request_rate"` // requests per second towards the API

	// Polling
	UpdateIntervalSeconds int `yaml:"update_interval"`

	// Chat output
	BotName          string `yaml:"bot_name"`
	IconEmoji        string `yaml:"icon_emoji"`
	ChannelName      string `yaml:"channel_name"`
	SlackURL         string `yaml:"slack_url"`
	DiscordBotToken  string `yaml:"discord_bot_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`

	// Message rendering
	Timezone             string `yaml:"timezone"`
	TimezoneLabel        string `yaml:"timezone_label"`
	TournamentRoundTotal bool   `yaml:"tournament_round_total"`

	// Announced battle persistence: "", "file" or "redis"
	StateBackend string `yaml:"state_backend"`
	StatePath    string `yaml:"state_path"`

	// Redis configuration (worker mode and redis state backend)
	RedisAddress  string `yaml:"redis_address"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Cloud Tasks configuration (HTTP mode)
	ProjectID         string `yaml:"gcp_project_id"`
	QueueID           string `yaml:"cloud_tasks_queue"`
	LocationID        string `yaml:"gcp_location"`
	UseEmulator       bool   `yaml:"use_tasks_emulator"`
	CloudTasksAddress string `yaml:"cloud_tasks_emulator_host"`
	HandlerAddress    string `yaml:"handler_host"`

	// Observability
	MetricsAddress string `yaml:"metrics_address"`
	LogDir         string `yaml:"log_dir"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig reads the optional config file at path, then applies .env and
// environment overrides on top of it. JSON config files load as well since
// JSON is a subset of YAML.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		APIBaseURL:            "https://api.worldoftanks.com",
		RequestRate:           1,
		UpdateIntervalSeconds: 60,
		BotName:               "battle-notifier",
		IconEmoji:             "crossed_swords",
		Timezone:              "America/Chicago",
		TimezoneLabel:         "CST",
		StatePath:             "processed.json",
		RedisAddress:          "localhost:6379",
		LogLevel:              "info",
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.ApplicationID, "WOT_APPLICATION_ID")
	setString(&cfg.ClanTag, "WOT_CLAN_TAG")
	setString(&cfg.APIBaseURL, "WOT_API_BASE_URL")
	setString(&cfg.BotName, "BOT_NAME")
	setString(&cfg.IconEmoji, "ICON_EMOJI")
	setString(&cfg.ChannelName, "CHANNEL_NAME")
	setString(&cfg.SlackURL, "SLACK_WEBHOOK_URL")
	setString(&cfg.DiscordBotToken, "DISCORD_BOT_TOKEN")
	setString(&cfg.DiscordChannelID, "DISCORD_CHANNEL_ID")
	setString(&cfg.Timezone, "DISPLAY_TIMEZONE")
	setString(&cfg.TimezoneLabel, "DISPLAY_TIMEZONE_LABEL")
	setString(&cfg.StateBackend, "STATE_BACKEND")
	setString(&cfg.StatePath, "STATE_PATH")
	setString(&cfg.RedisAddress, "REDIS_ADDRESS")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.ProjectID, "GCP_PROJECT_ID")
	setString(&cfg.QueueID, "CLOUD_TASKS_QUEUE")
	setString(&cfg.LocationID, "GCP_LOCATION")
	setString(&cfg.CloudTasksAddress, "CLOUD_TASKS_EMULATOR_HOST")
	setString(&cfg.HandlerAddress, "HANDLER_HOST")
	setString(&cfg.MetricsAddress, "METRICS_ADDRESS")
	setString(&cfg.LogDir, "LOG_DIR")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if val, ok := os.LookupEnv("USE_TASKS_EMULATOR"); ok {
		cfg.UseEmulator = val == "true"
	}
	if val, ok := os.LookupEnv("TOURNAMENT_ROUND_TOTAL"); ok {
		cfg.TournamentRoundTotal = val == "true"
	}

	if val, ok := os.LookupEnv("WOT_CLAN_ID"); ok {
		var intVal int64
		_, err := fmt.Sscanf(val, "%d", &intVal)
		if err == nil && intVal > 0 {
			cfg.ClanID = intVal
		} else {
			fmt.Printf("Invalid WOT_CLAN_ID value '%s', ignoring\n", val)
		}
	}

	if val, ok := os.LookupEnv("REDIS_DB"); ok {
		var intVal int
		_, err := fmt.Sscanf(val, "%d", &intVal)
		if err == nil && intVal >= 0 {
			cfg.RedisDB = intVal
		}
	}

	if val, ok := os.LookupEnv("UPDATE_INTERVAL_SECONDS"); ok {
		var intVal int
		_, err := fmt.Sscanf(val, "%d", &intVal)
		if err == nil && intVal > 0 {
			cfg.UpdateIntervalSeconds = intVal
		} else {
			fmt.Printf("Invalid UPDATE_INTERVAL_SECONDS value '%s', using %d seconds\n", val, cfg.UpdateIntervalSeconds)
		}
	}

	if val, ok := os.LookupEnv("WOT_REQUEST_RATE"); ok {
		var floatVal float64
		_, err := fmt.Sscanf(val, "%g", &floatVal)
		if err == nil && floatVal > 0 {
			cfg.RequestRate = floatVal
		}
	}
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.ApplicationID == "" {
		missing = append(missing, "application_id")
	}
	if c.ClanID <= 0 {
		missing = append(missing, "clan_id")
	}
	if c.ClanTag == "" {
		missing = append(missing, "clan_tag")
	}
	if c.UpdateIntervalSeconds <= 0 {
		missing = append(missing, "update_interval")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}

// Location resolves the display timezone, falling back to UTC when the zone
// database has no entry for it.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
