package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"watchclanbattles/internal/models"
	"watchclanbattles/internal/queue"
	"watchclanbattles/internal/tasks"
)

func (a *app) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.cfg.RedisAddress,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}
}

func workerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process poll tasks from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			a.serveMetrics(cmd.Context())

			client := asynq.NewClient(a.redisOpt())
			defer client.Close()

			// The handler supplies a dispatcher per task.
			poller, err := a.newPoller(nil)
			if err != nil {
				return err
			}

			srv := asynq.NewServer(a.redisOpt(), asynq.Config{
				// One poll at a time; the tracker is not shared between goroutines.
				Concurrency: 1,
				Queues:      map[string]int{queue.DefaultQueue: 1},
			})

			mux := asynq.NewServeMux()
			mux.Handle(tasks.TypePollBattles, tasks.NewPollBattlesHandler(a.cfg, poller, client, a.logger))

			a.logger.Info().Str("redis", a.cfg.RedisAddress).Msg("Starting worker")
			return srv.Run(mux)
		},
	}
}

func enqueueCmd(configPath *string) *cobra.Command {
	var (
		duration time.Duration
		delay    time.Duration
		notify   bool
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Seed the worker queue with a poll task",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			q := queue.NewAsynqQueue(a.redisOpt())
			defer q.Close()

			payload := newPayload(a.cfg.ClanID, duration, notify)
			if err := q.Enqueue(cmd.Context(), payload, time.Now().Add(delay)); err != nil {
				return err
			}

			payloadJSON, _ := json.MarshalIndent(payload, "", "  ")
			a.logger.Info().RawJSON("payload", payloadJSON).Dur("delay", delay).Msg("Task enqueued successfully")
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop polling after this long (0 polls forever)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay before first execution")
	cmd.Flags().BoolVar(&notify, "notify", true, "Send notifications")
	return cmd
}

func queueStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-stats",
		Short: "Print the state of the worker queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			q := queue.NewAsynqQueue(a.redisOpt())
			defer q.Close()

			stats, err := q.Stats()
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
}

// newPayload builds a poll payload. A zero duration leaves the execution
// window open.
func newPayload(clanID int64, duration time.Duration, notify bool) models.Payload {
	payload := models.Payload{ClanID: clanID, ShouldNotify: &notify}
	if duration > 0 {
		end := time.Now().Add(duration).Format(time.RFC3339)
		payload.ExecutionEnd = &end
	}
	return payload
}
