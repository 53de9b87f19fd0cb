// Command battlenotifier watches a clan's upcoming clan wars battles on the
// World of Tanks global map and announces them to Slack and Discord.
//
// Usage:
//
//	battlenotifier run --config config.yaml
//	battlenotifier once
//	battlenotifier stronghold
//	battlenotifier worker
//	battlenotifier enqueue --duration 4h
//	battlenotifier serve --port 8080
//	battlenotifier schedule --duration 4h
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"watchclanbattles/config"
	"watchclanbattles/internal/logging"
	"watchclanbattles/internal/metrics"
	"watchclanbattles/internal/notification"
	"watchclanbattles/internal/services"
	"watchclanbattles/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "battlenotifier",
		Short:         "Clan wars battle notifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "Path to a YAML or JSON config file")

	root.AddCommand(runCmd(&configPath))
	root.AddCommand(onceCmd(&configPath))
	root.AddCommand(strongholdCmd(&configPath))
	root.AddCommand(workerCmd(&configPath))
	root.AddCommand(enqueueCmd(&configPath))
	root.AddCommand(queueStatsCmd(&configPath))
	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(scheduleCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	logFile io.Closer
	metrics *metrics.Metrics
	closers []io.Closer
}

func setup(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, logFile: closer, metrics: metrics.New()}, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
	a.logFile.Close()
}

// serveMetrics exposes /metrics in the background when an address is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddress == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, a.cfg.MetricsAddress); err != nil {
			a.logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	a.logger.Info().Str("address", a.cfg.MetricsAddress).Msg("Serving metrics")
}

// newPoller wires the API source, tracker, formatter and announced store.
func (a *app) newPoller(dispatcher services.Dispatcher) (*services.BattlePoller, error) {
	cfg := a.cfg

	announced, err := store.New(cfg)
	if err != nil {
		return nil, err
	}

	tracker := services.NewBattleTracker()
	formatter := services.NewFormatter(tracker, services.FormatterOptions{
		ClanTag:       cfg.ClanTag,
		Location:      cfg.Location(),
		TimezoneLabel: cfg.TimezoneLabel,
		RoundTotal:    cfg.TournamentRoundTotal,
	})

	poller := &services.BattlePoller{
		Source:     services.NewHTTPEventSource(cfg.APIBaseURL, cfg.ApplicationID, cfg.RequestRate, a.logger),
		Tracker:    tracker,
		Formatter:  formatter,
		Dispatcher: dispatcher,
		Metrics:    a.metrics,
		Logger:     a.logger,
		ClanID:     cfg.ClanID,
		Message: services.MessageOptions{
			Text:      "<!channel>",
			Username:  cfg.BotName,
			IconEmoji: cfg.IconEmoji,
			Channel:   cfg.ChannelName,
		},
	}
	if announced != nil {
		poller.Store = announced
		if c, ok := announced.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}
	return poller, nil
}

func (a *app) newNotificationService() *notification.Service {
	return notification.NewService(notification.OptionsFromConfig(a.cfg), a.logger)
}
