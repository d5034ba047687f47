package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/assistant"
	"github.com/designwheel/engine/internal/bootstrap"
	"github.com/designwheel/engine/internal/queue/tasks"
	"github.com/designwheel/engine/internal/services"
	"github.com/designwheel/engine/pkg/config"
	"github.com/designwheel/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// the worker shares state with the api only through Postgres and Redis
	if !cfg.UsesRedis() || !cfg.UsesDatabase() {
		log.Fatal("worker requires REDIS_ADDR and DATABASE_URL")
	}

	ctx := context.Background()
	rdb := bootstrap.NewRedis(cfg)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	repos, err := bootstrap.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open repositories", zap.Error(err))
	}
	defer repos.Close()

	ai, err := assistant.FromConfig(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	if err != nil {
		log.Fatal("failed to create ai assistant", zap.Error(err))
	}
	analysis := services.NewAnalysisService(repos.Projects, repos.Analyses, ai)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
			Logger:      log.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	tasks.NewFeedbackAnalysisHandler(analysis).Register(mux)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	srv.Shutdown()
}
