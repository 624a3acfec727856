package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// SettingRepository implements port.SettingRepository on system_settings
type SettingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingRepository creates a new settings repository
func NewSettingRepository(db *sql.DB, logger *zap.Logger) port.SettingRepository {
	return &SettingRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the value for key, or "" when unset
func (r *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := sqlite.ExecutorFor(ctx, r.db).
		QueryRowContext(ctx, `SELECT value FROM system_settings WHERE key = ?`, key).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		r.logger.Error("Failed to read setting", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key
func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		r.logger.Error("Failed to write setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

var _ port.SettingRepository = (*SettingRepository)(nil)
