package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/bootstrap"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/pkg/config"
	"github.com/designwheel/engine/pkg/database"
	"github.com/designwheel/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if !cfg.UsesDatabase() {
		log.Fatal("DATABASE_URL is required for migrations")
	}

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.DefaultOptions(cfg.AppEnv))
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := runMigrations(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if err := bootstrap.SeedAllowList(ctx, repository.NewAllowListRepository(db), cfg.SeedIDs()); err != nil {
		log.Fatal("seeding allow-list failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
