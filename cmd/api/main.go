package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/preconsulta/intake-platform/cmd/mainconfig"
	"github.com/preconsulta/intake-platform/internal/accounts"
	"github.com/preconsulta/intake-platform/internal/api/router"
	appconfig "github.com/preconsulta/intake-platform/internal/config"
	"github.com/preconsulta/intake-platform/internal/links"
	"github.com/preconsulta/intake-platform/internal/notify"
	"github.com/preconsulta/intake-platform/internal/observability/metrics"
	"github.com/preconsulta/intake-platform/internal/provisioning"
	"github.com/preconsulta/intake-platform/internal/responses"
	"github.com/preconsulta/intake-platform/internal/submissions"
	"github.com/preconsulta/intake-platform/internal/uploads"
	"github.com/preconsulta/intake-platform/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and other endpoint overrides require path-style keys.
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	storage := uploads.NewStorage(
		s3.NewPresignClient(s3Client),
		s3Client,
		cfg.StorageBucket,
		cfg.UploadURLTTL,
		cfg.DownloadURLTTL,
		logger.Component("storage"),
	)

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	intakeMetrics := metrics.NewIntakeMetrics(reg)

	linkRepo := links.NewPostgresRepository(pool)
	fileRepo := uploads.NewPostgresRepository(pool)
	responseRepo := responses.NewPostgresRepository(pool)
	accountRepo := accounts.NewPostgresRepository(pool)
	processedStore := provisioning.NewPostgresProcessedStore(pool)

	validator := links.NewValidator(linkRepo, logger.Component("links"))
	notifier := responses.NewRedisNotifier(redisClient, logger.Component("notifier"))

	sender := buildEmailSender(cfg, awsCfg, logger)
	welcome := notify.NewWelcomeMailer(sender, cfg.PublicBaseURL, logger.Component("notify"))
	provisioner := provisioning.NewProvisioner(accountRepo, welcome, logger.Component("provisioning"))

	finalizer := submissions.NewFinalizer(
		validator,
		linkRepo,
		responseRepo,
		fileRepo,
		notifier,
		intakeMetrics,
		logger.Component("submissions"),
	)

	routerCfg := &router.Config{
		Logger:             logger,
		LinksHandler:       links.NewHandler(linkRepo, validator, cfg.PublicBaseURL, cfg.LinkTTL, intakeMetrics, logger.Component("links")),
		UploadsHandler:     uploads.NewHandler(storage, fileRepo, intakeMetrics, logger.Component("uploads")),
		SubmitHandler:      submissions.NewHandler(finalizer, logger.Component("submissions")),
		WebhookHandler:     provisioning.NewWebhookHandler(cfg.HotmartWebhookSecret, provisioner, processedStore, intakeMetrics, logger.Component("provisioning")),
		ResponsesHandler:   responses.NewHandler(responseRepo, fileRepo, storage, logger.Component("responses")),
		ProfileHandler:     accounts.NewHandler(accountRepo, logger.Component("accounts")),
		WSHandler:          responses.NewWSHandler(notifier, logger.Component("ws")),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DashboardJWTSecret: cfg.DashboardJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger.Component("notify")); s != nil {
			return s
		}
	case "ses":
		if cfg.SESFromEmail != "" {
			if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SESFromName,
			}, logger.Component("notify")); s != nil {
				return s
			}
		}
	}
	logger.Warn("no email provider configured, welcome emails will be logged only")
	return notify.NewStubEmailSender(logger.Component("notify"))
}
