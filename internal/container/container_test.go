package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/domain/entity"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "sgpd.db")
	cfg.Storage.DocumentsDir = filepath.Join(dir, "docs")
	cfg.Scheduler.Enabled = false
	cfg.Workflow.BootstrapAdmin = "admin-1"
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Lark.Enabled = true
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err, "lark without credentials")

	cfg = DefaultConfig()
	cfg.Deadline.NearDueDays = cfg.Deadline.WindowDays
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start")

	admin, err := c.Repositories().Profiles.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, admin, "bootstrap admin created on a fresh database")
	assert.Equal(t, entity.RoleAdmin, admin.Role)

	health := c.Health()
	assert.True(t, health.Overall)
	assert.Equal(t, "disabled", health.Components["lark"].Message)
	assert.Equal(t, "disabled", health.Components["openai"].Message)

	assert.NotNil(t, c.Server())
	assert.NotNil(t, c.Services().Accountability)
	assert.NotEmpty(t, c.Dispatcher().ListHandlers("deadline.alert"))

	result, err := c.DailyJob().Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Sweep.Opened)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(ctx))
}

func TestEnsureBootstrapAdmin_KeepsExisting(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	profiles := c.Repositories().Profiles
	require.NoError(t, profiles.Upsert(ctx, &entity.Profile{ID: "admin-1", Name: "Renomeado", Role: entity.RoleAdmin}))

	require.NoError(t, EnsureBootstrapAdmin(ctx, profiles, "admin-1", zap.NewNop()))
	got, err := profiles.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Renomeado", got.Name)

	assert.NoError(t, EnsureBootstrapAdmin(ctx, profiles, "", zap.NewNop()))
}

func TestEnsureBootstrapAdmin_CreatesWhenMissing(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	profiles := c.Repositories().Profiles

	missing, err := profiles.GetByID(ctx, "admin-2")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, EnsureBootstrapAdmin(ctx, profiles, "admin-2", zap.NewNop()))
	created, err := profiles.GetByID(ctx, "admin-2")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, entity.RoleAdmin, created.Role)
	assert.Equal(t, "Administrador", created.Name)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("request_id", "req-1", 42, "skipped", "error", errors.New("boom"), "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "request_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
