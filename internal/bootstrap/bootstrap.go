// Package bootstrap wires configuration into the Captions client, the
// generator and the output storage used by the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/maauso/adgen/internal/captions"
	"github.com/maauso/adgen/internal/config"
	"github.com/maauso/adgen/internal/generator"
	"github.com/maauso/adgen/internal/storage"
)

// Dependencies holds the initialized components for the API-backed commands.
type Dependencies struct {
	Generator *generator.Generator
}

// NewDependencies creates the Captions client and the generator.
// cfg must already have passed Validate.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	client, err := captions.NewClient(
		captions.WithAPIKey(cfg.CaptionsAPIKey),
		captions.WithBaseURL(cfg.CaptionsBaseURL),
		captions.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		captions.WithDownloadClient(&http.Client{Timeout: cfg.DownloadTimeout}),
		captions.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create Captions client: %w", err)
	}

	gen := generator.New(
		client,
		logger,
		generator.WithPollInterval(cfg.PollInterval),
		generator.WithTimeout(cfg.GenerationTimeout),
	)

	logger.Debug("captions client configured",
		slog.String("base_url", cfg.CaptionsBaseURL),
		slog.Duration("poll_interval", cfg.PollInterval),
		slog.Duration("generation_timeout", cfg.GenerationTimeout),
	)

	return &Dependencies{
		Generator: gen,
	}, nil
}

// NewPublisher creates the publisher for finished videos: S3 when
// configured, otherwise the local output directory, which refuses to publish.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Publisher, error) {
	if cfg.S3Enabled() {
		pub, err := storage.NewS3Publisher(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 publisher: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return pub, nil
	}

	local, err := storage.NewLocal(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("output_dir", cfg.OutputDir),
	)
	return local, nil
}
