package main

import (
	"context"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/spf13/cobra"

	"watchclanbattles/internal/handlers"
	"watchclanbattles/internal/queue"
)

func serveCmd(configPath *string) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the poll handler as an HTTP function",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			a.serveMetrics(cmd.Context())

			taskQueue, err := queue.NewCloudTasksQueue(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer taskQueue.Close()

			poller, err := a.newPoller(nil)
			if err != nil {
				return err
			}

			handler := handlers.NewPollHandler(a.cfg, poller, taskQueue, a.logger)
			funcframework.RegisterHTTPFunction("/", handler.ServeHTTP)
			return funcframework.Start(port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "8080", "Port to listen on")
	return cmd
}

func scheduleCmd(configPath *string) *cobra.Command {
	var (
		duration time.Duration
		delay    time.Duration
		notify   bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Create a Cloud Task that starts polling through the HTTP function",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			taskQueue, err := queue.NewCloudTasksQueue(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer taskQueue.Close()

			payload := newPayload(a.cfg.ClanID, duration, notify)
			if err := taskQueue.Enqueue(ctx, payload, time.Now().Add(delay)); err != nil {
				return err
			}
			a.logger.Info().Msg("Scheduler completed successfully")
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 6*time.Hour, "Stop polling after this long (0 polls forever)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay before first execution")
	cmd.Flags().BoolVar(&notify, "notify", true, "Send notifications")
	return cmd
}
