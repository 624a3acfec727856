package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AlertDispatchRepository implements port.AlertDispatchRepository on alert_dispatches,
// whose primary key (request_id, trigger_date) makes a second claim a no-op.
type AlertDispatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertDispatchRepository creates a new alert dispatch repository
func NewAlertDispatchRepository(db *sql.DB, logger *zap.Logger) port.AlertDispatchRepository {
	return &AlertDispatchRepository{
		db:     db,
		logger: logger,
	}
}

// Claim reserves the alert slot; false means another run already took it
func (r *AlertDispatchRepository) Claim(ctx context.Context, requestID string, triggerDate time.Time) (bool, error) {
	query := `
		INSERT INTO alert_dispatches (request_id, trigger_date, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(request_id, trigger_date) DO NOTHING
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		requestID, formatDate(triggerDate), time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to claim alert slot",
			zap.String("request_id", requestID),
			zap.String("trigger_date", formatDate(triggerDate)),
			zap.Error(err))
		return false, fmt.Errorf("failed to claim alert slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

// Attach records which notification fulfilled the claim
func (r *AlertDispatchRepository) Attach(ctx context.Context, requestID string, triggerDate time.Time, notificationID int64) error {
	query := `UPDATE alert_dispatches SET notification_id = ? WHERE request_id = ? AND trigger_date = ?`

	if _, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		notificationID, requestID, formatDate(triggerDate)); err != nil {
		return fmt.Errorf("failed to attach notification to alert slot: %w", err)
	}
	return nil
}

var _ port.AlertDispatchRepository = (*AlertDispatchRepository)(nil)
