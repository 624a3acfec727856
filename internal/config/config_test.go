package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Deadline.WindowDays)
	assert.Equal(t, 2, cfg.Deadline.NearDueDays)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "flat", cfg.Workflow.ChainMode)
	assert.False(t, cfg.Lark.Enabled)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
deadline:
  window_days: 7
  near_due_days: 3
scheduler:
  interval: 1h
lark:
  enabled: true
  app_id: cli_x
workflow:
  chain_mode: department
`)
	t.Setenv("LARK_APP_SECRET", "s3cret")
	t.Setenv("SGPD_DATABASE_PATH", "/tmp/other.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Deadline.WindowDays)
	assert.Equal(t, 3, cfg.Deadline.NearDueDays)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "s3cret", cfg.Lark.AppSecret)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "department", cfg.Workflow.ChainMode)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"lark without secret", "lark:\n  enabled: true\n  app_id: cli_x\n"},
		{"openai without key", "openai:\n  enabled: true\n"},
		{"near due beyond window", "deadline:\n  window_days: 2\n  near_due_days: 2\n"},
		{"unknown chain mode", "workflow:\n  chain_mode: matrix\n"},
		{"bad port", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestToContainerConfig(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Deadline.WindowDays, cc.Deadline.WindowDays)
	assert.Equal(t, cfg.Scheduler.Interval, cc.Scheduler.Interval)
	assert.Equal(t, cfg.Server.MaxUploadBytes, cc.Server.MaxUploadBytes)
	assert.NoError(t, cc.Validate())
}
