package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"watchclanbattles/config"
)

// Options selects which notifiers the service creates.
type Options struct {
	SlackWebhookURL  string
	DiscordBotToken  string
	DiscordChannelID string
}

// OptionsFromConfig picks the notifier settings out of the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SlackWebhookURL:  cfg.SlackURL,
		DiscordBotToken:  cfg.DiscordBotToken,
		DiscordChannelID: cfg.DiscordChannelID,
	}
}

type Service struct {
	notifiers    []Notifier
	shouldNotify bool
	logger       zerolog.Logger
	timeout      time.Duration
}

func NewService(opts Options, logger zerolog.Logger) *Service {
	return NewServiceWithNotificationFlag(opts, true, logger)
}

// NewServiceWithNotificationFlag creates a service that formats and logs but
// never delivers when shouldNotify is false.
func NewServiceWithNotificationFlag(opts Options, shouldNotify bool, logger zerolog.Logger) *Service {
	service := NewServiceWithNotifiers(logger)
	service.shouldNotify = shouldNotify
	service.discoverNotifiers(opts)
	return service
}

// NewServiceForPayload honours a task payload's should_notify flag. A nil
// flag means notify.
func NewServiceForPayload(opts Options, shouldNotify *bool, logger zerolog.Logger) *Service {
	if shouldNotify != nil {
		return NewServiceWithNotificationFlag(opts, *shouldNotify, logger)
	}
	return NewService(opts, logger)
}

// NewServiceWithNotifiers wraps already constructed notifiers.
func NewServiceWithNotifiers(logger zerolog.Logger, notifiers ...Notifier) *Service {
	return &Service{
		notifiers:    notifiers,
		shouldNotify: true,
		logger:       logger,
		timeout:      30 * time.Second,
	}
}

func (s *Service) discoverNotifiers(opts Options) {
	if opts.SlackWebhookURL != "" {
		if n, err := NewSlackNotifier(opts.SlackWebhookURL, s.logger); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to create Slack notifier")
		} else {
			s.notifiers = append(s.notifiers, n)
			s.logger.Info().Msg("Slack notifier created successfully")
		}
	}

	if opts.DiscordBotToken != "" {
		cfg := NotifierConfig{Config: map[string]string{
			"DISCORD_BOT_TOKEN":  opts.DiscordBotToken,
			"DISCORD_CHANNEL_ID": opts.DiscordChannelID,
		}}
		if n, err := NewDiscordNotifier(cfg, s.logger); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to create Discord notifier")
		} else {
			s.notifiers = append(s.notifiers, n)
			s.logger.Info().Msg("Discord notifier created successfully")
		}
	}
}

func (s *Service) NotifierCount() int {
	return len(s.notifiers)
}

// Dispatch hands the batch to every notifier and waits for their results.
// Failed deliveries are reported, not retried.
func (s *Service) Dispatch(ctx context.Context, batch Batch) []NotificationResult {
	if !s.shouldNotify {
		s.logger.Info().Int("units", len(batch.Units)).Msg("Notifications disabled for this service instance, skipping batch")
		return nil
	}
	if len(s.notifiers) == 0 {
		s.logger.Warn().Msg("No notifiers configured, skipping notification")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var results []NotificationResult
	for _, notifier := range s.notifiers {
		results = append(results, s.sendToNotifier(ctx, notifier, batch)...)
	}
	return results
}

func (s *Service) sendToNotifier(ctx context.Context, notifier Notifier, batch Batch) []NotificationResult {
	resultChan, err := notifier.SendBatch(ctx, batch)
	if err != nil {
		return []NotificationResult{{
			Notifier:  notifier.Name(),
			Error:     err,
			Timestamp: time.Now(),
		}}
	}

	var results []NotificationResult
	for {
		select {
		case result, ok := <-resultChan:
			if !ok {
				return results
			}
			results = append(results, result)
		case <-ctx.Done():
			s.logger.Warn().Str("notifier", notifier.Name()).Msg("Notification timed out")
			return append(results, NotificationResult{
				Notifier:  notifier.Name(),
				Error:     ctx.Err(),
				Timestamp: time.Now(),
			})
		}
	}
}

// Close shuts down every notifier and returns the last error seen.
func (s *Service) Close() error {
	var lastErr error
	for _, notifier := range s.notifiers {
		if err := notifier.Close(); err != nil {
			s.logger.Error().Err(err).Str("notifier", notifier.Name()).Msg("Error closing notifier")
			lastErr = err
		}
	}
	return lastErr
}
