package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// WorkflowEntryRepository implements port.WorkflowEntryRepository on the approval_workflow table.
// There is deliberately no update or delete; the schema rejects both.
type WorkflowEntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowEntryRepository creates a new workflow entry repository
func NewWorkflowEntryRepository(db *sql.DB, logger *zap.Logger) port.WorkflowEntryRepository {
	return &WorkflowEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one log entry
func (r *WorkflowEntryRepository) Append(ctx context.Context, entry *entity.WorkflowEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC()

	query := `
		INSERT INTO approval_workflow (
			request_id, actor_id, actor_role, action, comment,
			from_status, to_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		entry.RequestID,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.Comment,
		entry.FromStatus,
		entry.ToStatus,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append workflow entry",
			zap.String("request_id", entry.RequestID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to append workflow entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByRequestID returns the full history of a request, oldest first
func (r *WorkflowEntryRepository) ListByRequestID(ctx context.Context, requestID string) ([]*entity.WorkflowEntry, error) {
	query := `
		SELECT id, request_id, actor_id, actor_role, action, comment,
			from_status, to_status, created_at
		FROM approval_workflow
		WHERE request_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list workflow entries", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WorkflowEntry
	for rows.Next() {
		entry, err := scanWorkflowEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Latest returns the newest entry for a request, or nil when there is none
func (r *WorkflowEntryRepository) Latest(ctx context.Context, requestID string) (*entity.WorkflowEntry, error) {
	query := `
		SELECT id, request_id, actor_id, actor_role, action, comment,
			from_status, to_status, created_at
		FROM approval_workflow
		WHERE request_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	entry, err := scanWorkflowEntry(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get latest workflow entry", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get latest workflow entry: %w", err)
	}

	return entry, nil
}

func scanWorkflowEntry(row rowScanner) (*entity.WorkflowEntry, error) {
	var entry entity.WorkflowEntry
	err := row.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.ActorID,
		&entry.ActorRole,
		&entry.Action,
		&entry.Comment,
		&entry.FromStatus,
		&entry.ToStatus,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

var _ port.WorkflowEntryRepository = (*WorkflowEntryRepository)(nil)
