// Package bootstrap builds the backing stores shared by the api, worker and
// admin binaries from configuration.
package bootstrap

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/designwheel/engine/internal/lock"
	"github.com/designwheel/engine/internal/repository"
	"github.com/designwheel/engine/internal/storage"
	"github.com/designwheel/engine/pkg/config"
	"github.com/designwheel/engine/pkg/database"
	appErr "github.com/designwheel/engine/pkg/errors"
	"github.com/designwheel/engine/pkg/logger"
)

// AssetRoute is where the API serves content of the in-memory store.
const AssetRoute = "/api/v1/assets/"

type Repositories struct {
	DB        *gorm.DB
	Projects  repository.ProjectRepository
	Users     repository.UserRepository
	AllowList repository.AllowListRepository
	Analyses  repository.AnalysisRepository
}

// OpenRepositories connects to Postgres when DATABASE_URL is set and falls
// back to process memory otherwise.
func OpenRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	if !cfg.UsesDatabase() {
		logger.L().Warn("DATABASE_URL not set, state is kept in memory")
		return &Repositories{
			Projects:  repository.NewMemoryProjectRepository(),
			Users:     repository.NewMemoryUserRepository(),
			AllowList: repository.NewMemoryAllowListRepository(),
			Analyses:  repository.NewMemoryAnalysisRepository(),
		}, nil
	}
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.DefaultOptions(cfg.AppEnv))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "connect database failed")
	}
	logger.L().Info("database connected")
	return &Repositories{
		DB:        db,
		Projects:  repository.NewProjectRepository(db),
		Users:     repository.NewUserRepository(db),
		AllowList: repository.NewAllowListRepository(db),
		Analyses:  repository.NewAnalysisRepository(db),
	}, nil
}

// Ping checks the database; the in-memory backend is always ready.
func (r *Repositories) Ping(ctx context.Context) error {
	if r.DB == nil {
		return nil
	}
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repositories) Close() {
	if r.DB == nil {
		return
	}
	if sqlDB, err := r.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// NewRedis returns nil when REDIS_ADDR is not configured.
func NewRedis(cfg *config.Config) *redis.Client {
	if !cfg.UsesRedis() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
}

// NewLocker picks the distributed locker when Redis is available.
func NewLocker(rdb *redis.Client) lock.Locker {
	if rdb == nil {
		logger.L().Warn("REDIS_ADDR not set, project locks are process local")
		return lock.NewLocalLocker()
	}
	return lock.NewRedisLocker(rdb)
}

// NewStore connects to MinIO when MINIO_ENDPOINT is set.
func NewStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.MinioEndpoint == "" {
		logger.L().Warn("MINIO_ENDPOINT not set, assets are kept in memory")
		return storage.NewMemoryStore(AssetRoute), nil
	}
	s, err := storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("asset store connected", zap.String("endpoint", cfg.MinioEndpoint), zap.String("bucket", cfg.MinioBucket))
	return s, nil
}

// SeedAllowList makes sure the configured ids are admitted.
func SeedAllowList(ctx context.Context, allow repository.AllowListRepository, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	added, err := allow.Add(ctx, ids)
	if err != nil {
		return err
	}
	logger.L().Info("allow-list seeded", zap.Int("configured", len(ids)), zap.Int("added", added))
	return nil
}
