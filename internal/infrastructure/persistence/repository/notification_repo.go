package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a notification. Notifications are never updated afterwards.
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	query := `
		INSERT INTO notifications (recipient_id, request_id, message, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		n.RecipientID,
		n.RequestID,
		n.Message,
		n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("recipient_id", n.RecipientID),
			zap.String("request_id", n.RequestID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// ListByRecipient returns a user's notifications, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, recipient_id, request_id, message, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.String("recipient_id", recipientID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.RequestID, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, &n)
	}

	return out, rows.Err()
}

// CountByRequestID counts notifications tied to a request
func (r *NotificationRepository) CountByRequestID(ctx context.Context, requestID string) (int, error) {
	var count int
	err := sqlite.ExecutorFor(ctx, r.db).
		QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE request_id = ?`, requestID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
