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

// AccountabilityRepository implements port.AccountabilityRepository
type AccountabilityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccountabilityRepository creates a new accountability repository
func NewAccountabilityRepository(db *sql.DB, logger *zap.Logger) port.AccountabilityRepository {
	return &AccountabilityRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the submission; a request accepts only one
func (r *AccountabilityRepository) Create(ctx context.Context, sub *entity.AccountabilitySubmission) error {
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	sub.SubmittedAt = sub.SubmittedAt.UTC()

	query := `
		INSERT INTO accountability_submissions (
			request_id, submitted_by, has_tickets, has_report, has_refund,
			attachment_count, submitted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		sub.RequestID,
		sub.SubmittedBy,
		sub.Checklist.Tickets,
		sub.Checklist.Report,
		sub.Checklist.Refund,
		sub.AttachmentCount,
		sub.SubmittedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create accountability submission", zap.String("request_id", sub.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create accountability submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	sub.ID = id
	return nil
}

// GetByRequestID returns the submission for a request, or nil
func (r *AccountabilityRepository) GetByRequestID(ctx context.Context, requestID string) (*entity.AccountabilitySubmission, error) {
	query := `
		SELECT id, request_id, submitted_by, has_tickets, has_report, has_refund,
			attachment_count, submitted_at
		FROM accountability_submissions
		WHERE request_id = ?
	`

	var sub entity.AccountabilitySubmission
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, requestID).Scan(
		&sub.ID,
		&sub.RequestID,
		&sub.SubmittedBy,
		&sub.Checklist.Tickets,
		&sub.Checklist.Report,
		&sub.Checklist.Refund,
		&sub.AttachmentCount,
		&sub.SubmittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get accountability submission", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get accountability submission: %w", err)
	}

	return &sub, nil
}

var _ port.AccountabilityRepository = (*AccountabilityRepository)(nil)
