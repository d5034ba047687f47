package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/api"
	"github.com/designwheel/engine/internal/api/handlers"
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

	log.Info("starting design wheel api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	repos, err := bootstrap.OpenRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open repositories", zap.Error(err))
	}
	defer repos.Close()
	if err := bootstrap.SeedAllowList(ctx, repos.AllowList, cfg.SeedIDs()); err != nil {
		log.Fatal("failed to seed allow-list", zap.Error(err))
	}

	rdb := bootstrap.NewRedis(cfg)
	checks := map[string]handlers.Pinger{"database": repos.Ping}
	if rdb != nil {
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	locker := bootstrap.NewLocker(rdb)

	store, err := bootstrap.NewStore(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open asset store", zap.Error(err))
	}

	ai, err := assistant.FromConfig(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	if err != nil {
		log.Fatal("failed to create ai assistant", zap.Error(err))
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}
	if cfg.InstructorPasswordHash == "" {
		log.Warn("INSTRUCTOR_PASSWORD_HASH not set, instructor login is disabled")
	}

	analysis := services.NewAnalysisService(repos.Projects, repos.Analyses, ai)
	var enqueuer services.AnalysisEnqueuer
	if rdb != nil {
		client := asynq.NewClientFromRedisClient(rdb)
		enqueuer = tasks.NewDispatcher(client)
	} else {
		log.Warn("REDIS_ADDR not set, feedback analysis runs in process")
		enqueuer = services.NewInlineEnqueuer(analysis)
	}

	auth := services.NewAuthService(jwtSecret, cfg.TokenTTL, cfg.InstructorEmail, cfg.InstructorPasswordHash)
	directory := services.NewDirectoryService(repos.Users, repos.AllowList, repos.Projects, locker)
	projects := services.NewProjectService(repos.Projects, locker, directory, store, enqueuer, cfg.ClassID, cfg.MaxUploadBytes)
	export := services.NewExportService(repos.Users, repos.AllowList, repos.Projects)

	router := api.NewRouter(api.Dependencies{
		Auth:            auth,
		AuthHandler:     handlers.NewAuthHandler(auth, directory),
		ProjectsHandler: handlers.NewProjectsHandler(projects, auth),
		StagesHandler:   handlers.NewStagesHandler(projects),
		AssetsHandler:   handlers.NewAssetsHandler(projects, store, cfg.MaxUploadBytes),
		RosterHandler:   handlers.NewRosterHandler(directory, export),
		AIHandler:       handlers.NewAIHandler(analysis, projects),
		HealthHandler:   handlers.NewHealthHandler(checks),
		RateLimit:       10,
		RateBurst:       20,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
