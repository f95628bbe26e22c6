// Command server is the entry point for the Isintu API.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"isintu/internal/bootstrap"
	"isintu/internal/config"
	"isintu/internal/database"
	"isintu/internal/jobs"
	"isintu/internal/middleware"
	"isintu/internal/observability"
	"isintu/internal/server"
	"isintu/internal/storage"
)

// @title Isintu API
// @version 1.0
// @description Social blogging API with moderated posts, likes, comments, follows and notifications
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@isintu.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

var version = "dev"

func main() {
	seedDemo := flag.Bool("seed-demo", false, "Load the bundled demo content on startup")
	runJob := flag.String("run-job", "", "Run one maintenance job by name and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
	logger := middleware.Logger

	shutdownTracing, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		logger.Error("tracing disabled", slog.String("error", err.Error()))
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedDemo: *seedDemo})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	// Without object storage the API still runs; media endpoints answer 503.
	var store storage.ObjectStore
	if s3, err := storage.NewS3Store(cfg); err != nil {
		logger.Warn("object storage unavailable", slog.String("error", err.Error()))
	} else {
		if err := s3.EnsureBucket(ctx); err != nil {
			logger.Warn("could not ensure media bucket", slog.String("bucket", cfg.S3Bucket), slog.String("error", err.Error()))
		}
		store = s3
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb, store)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	scheduler := jobs.NewScheduler()
	retention := jobs.NewNotificationRetentionJob(srv.Notifications(), cfg.NotificationCleanupCron, cfg.NotificationRetentionDays)
	if err := scheduler.Register(retention); err != nil {
		log.Fatalf("Failed to register jobs: %v", err)
	}
	if *runJob != "" {
		err := scheduler.RunByName(ctx, *runJob)
		if cerr := database.Close(); cerr != nil {
			logger.Warn("database close failed", slog.String("error", cerr.Error()))
		}
		if err != nil {
			log.Fatalf("Job %s failed: %v", *runJob, err)
		}
		return
	}
	scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server resource shutdown error", slog.String("error", err.Error()))
	}
	if err := errors.Join(database.Close(), shutdownTracing(shutdownCtx)); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
}
