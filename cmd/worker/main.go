package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/multimodal-agent/server/internal/bootstrap"
	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/jobs"
)

const shutdownGrace = 30 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to initialise dependencies")
	}
	defer deps.Close()

	models, err := bootstrap.NewModels(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: inference clients misconfigured")
	}
	manager, err := deps.NewManager(models)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: job manager misconfigured")
	}

	pool := jobs.NewPool(deps.Jobs, manager, jobs.PoolConfig{
		Workers:      cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
		JobTimeout:   cfg.JobTimeout,
	}, &logger)

	logger.Info().
		Int("workers", cfg.WorkerConcurrency).
		Str("language", cfg.CodegenLanguage).
		Str("storage", cfg.StorageBackend).
		Msg("worker: configured")
	pool.Start(ctx)

	<-ctx.Done()
	logger.Info().Msg("worker: shutting down")
	if err := pool.Shutdown(shutdownGrace); err != nil {
		logger.Error().Err(err).Msg("worker: in-flight jobs did not finish")
	}
	logger.Info().Msg("worker: stopped")
}
