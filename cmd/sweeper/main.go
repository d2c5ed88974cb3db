package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/preconsulta/intake-platform/cmd/mainconfig"
	appconfig "github.com/preconsulta/intake-platform/internal/config"
	"github.com/preconsulta/intake-platform/internal/uploads"
	"github.com/preconsulta/intake-platform/pkg/logging"
)

const sweepBatchSize = 200

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("sweeper")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	storage := uploads.NewStorage(
		s3.NewPresignClient(s3Client),
		s3Client,
		cfg.StorageBucket,
		cfg.UploadURLTTL,
		cfg.DownloadURLTTL,
		logger,
	)
	files := uploads.NewPostgresRepository(pool)

	cutoff := time.Now().UTC().Add(-cfg.SweeperMaxAge)
	logger.Info("sweeping orphaned uploads", "cutoff", cutoff, "max_age", cfg.SweeperMaxAge)

	sweeper := uploads.NewSweeper(files, storage, sweepBatchSize, logger)
	swept, failed, err := sweeper.Sweep(ctx, cutoff)
	if err != nil {
		logger.Error("sweep aborted", "error", err, "swept", swept, "failed", failed)
		os.Exit(1)
	}

	logger.Info("sweep complete", "swept", swept, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
