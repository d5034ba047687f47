package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/designwheel/engine/internal/bootstrap"
	"github.com/designwheel/engine/internal/lock"
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

	repos, err := bootstrap.OpenRepositories(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to open repositories", zap.Error(err))
	}
	defer repos.Close()

	// admin commands never mutate projects, so a process lock is enough
	directory := services.NewDirectoryService(repos.Users, repos.AllowList, repos.Projects, lock.NewLocalLocker())
	cli := &commandLine{
		directory: directory,
		export:    services.NewExportService(repos.Users, repos.AllowList, repos.Projects),
	}
	if err := newRootCmd(cli).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
