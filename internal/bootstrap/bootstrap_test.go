package bootstrap

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/designwheel/engine/internal/lock"
	"github.com/designwheel/engine/internal/storage"
	"github.com/designwheel/engine/pkg/config"
	"github.com/designwheel/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

func TestInMemoryFallbacks(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}

	repos, err := OpenRepositories(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, repos.DB)
	assert.NoError(t, repos.Ping(ctx))
	repos.Close()

	assert.Nil(t, NewRedis(cfg))
	assert.IsType(t, &lock.LocalLocker{}, NewLocker(nil))

	store, err := NewStore(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, store)
}

func TestSeedAllowListIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repos, err := OpenRepositories(ctx, &config.Config{})
	require.NoError(t, err)

	ids := []string{"1234567890", "0987654321"}
	require.NoError(t, SeedAllowList(ctx, repos.AllowList, ids))
	require.NoError(t, SeedAllowList(ctx, repos.AllowList, ids))
	require.NoError(t, SeedAllowList(ctx, repos.AllowList, nil))

	got, err := repos.AllowList.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0987654321", "1234567890"}, got)
}
