// internal/tasks/factory.go
package tasks

import (
	"context"

	"watchclanbattles/config"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func NewCloudTasksClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (CloudTasksClient, error) {
	if cfg.UseEmulator && cfg.CloudTasksAddress != "" {
		logger.Info().Str("address", cfg.CloudTasksAddress).Msg("Using local Cloud Tasks emulator")
		// The emulator speaks plaintext gRPC.
		conn, err := grpc.NewClient(
			cfg.CloudTasksAddress,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, err
		}
		client, err := cloudtasks.NewClient(ctx, option.WithGRPCConn(conn))
		if err != nil {
			return nil, err
		}
		return &realClient{client: client}, nil
	}

	// Production client with default credentials
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &realClient{client: client}, nil
}
