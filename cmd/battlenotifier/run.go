package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"watchclanbattles/internal/services"
)

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll for battles until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.serveMetrics(ctx)

			notifier := a.newNotificationService()
			defer notifier.Close()

			poller, err := a.newPoller(notifier)
			if err != nil {
				return err
			}

			err = poller.Run(ctx, a.cfg.UpdateInterval())
			switch {
			case errors.Is(err, services.ErrUpstreamStatus):
				a.logger.Fatal().Err(err).Msg("WoT API rejected the request, check application_id and clan_id")
			case errors.Is(err, context.Canceled):
				// Interrupted runs exit non-zero.
				a.Close()
				os.Exit(1)
			}
			return err
		},
	}
}

func onceCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single poll cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			notifier := a.newNotificationService()
			defer notifier.Close()

			poller, err := a.newPoller(notifier)
			if err != nil {
				return err
			}

			result, err := poller.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info().
				Int("new_battles", result.NewBattles).
				Int("announced", result.Announced).
				Msg("Poll cycle completed")
			return nil
		},
	}
}

func strongholdCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stronghold",
		Short: "Report the clan's planned stronghold battles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			notifier := a.newNotificationService()
			defer notifier.Close()

			poller, err := a.newPoller(notifier)
			if err != nil {
				return err
			}

			_, err = poller.ReportStrongholds(cmd.Context())
			return err
		},
	}
}
