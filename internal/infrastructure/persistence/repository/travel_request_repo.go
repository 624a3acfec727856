package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/domain/workflow"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const travelRequestColumns = `
	id, requester_id, origin, destination, departure_date, return_date,
	justification, transport_type, itinerary, funding_source, estimated_value,
	status, created_at, updated_at`

// TravelRequestRepository implements port.TravelRequestRepository
type TravelRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTravelRequestRepository creates a new travel request repository
func NewTravelRequestRepository(db *sql.DB, logger *zap.Logger) port.TravelRequestRepository {
	return &TravelRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new travel request
func (r *TravelRequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt

	query := `INSERT INTO travel_requests (` + travelRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		req.RequesterID,
		req.Origin,
		req.Destination,
		formatDate(req.DepartureDate),
		formatDate(req.ReturnDate),
		req.Justification,
		req.TransportType,
		req.Itinerary,
		req.FundingSource,
		req.EstimatedValue,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create travel request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to create travel request: %w", err)
	}

	return nil
}

// GetByID retrieves a travel request, or nil when it does not exist
func (r *TravelRequestRepository) GetByID(ctx context.Context, id string) (*entity.TravelRequest, error) {
	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests WHERE id = ?`

	req, err := scanTravelRequest(sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get travel request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get travel request: %w", err)
	}

	return req, nil
}

// UpdateDraft rewrites the editable fields while the request is still a draft
func (r *TravelRequestRepository) UpdateDraft(ctx context.Context, req *entity.TravelRequest) error {
	req.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE travel_requests SET
			origin = ?, destination = ?, departure_date = ?, return_date = ?,
			justification = ?, transport_type = ?, itinerary = ?,
			funding_source = ?, estimated_value = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		req.Origin,
		req.Destination,
		formatDate(req.DepartureDate),
		formatDate(req.ReturnDate),
		req.Justification,
		req.TransportType,
		req.Itinerary,
		req.FundingSource,
		req.EstimatedValue,
		req.UpdatedAt,
		req.ID,
		workflow.StateDraft.String(),
	)
	if err != nil {
		r.logger.Error("Failed to update draft", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update draft: %w", err)
	}

	return expectOneRow(result, req.ID)
}

// UpdateStatus performs the conditional status write used by every transition
func (r *TravelRequestRepository) UpdateStatus(ctx context.Context, id, expected, newStatus string) error {
	query := `UPDATE travel_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, newStatus, time.Now().UTC(), id, expected)
	if err != nil {
		r.logger.Error("Failed to update status",
			zap.String("id", id),
			zap.String("expected", expected),
			zap.String("status", newStatus),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	return expectOneRow(result, id)
}

// ListByStatusAndReturnDate selects requests in a status that returned on exactly the given date
func (r *TravelRequestRepository) ListByStatusAndReturnDate(ctx context.Context, status string, returnDate time.Time) ([]*entity.TravelRequest, error) {
	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests
		WHERE status = ? AND return_date = ?
		ORDER BY created_at ASC, id ASC`

	return r.query(ctx, query, status, formatDate(returnDate))
}

// ListByStatusReturnedBefore selects requests in a status whose return date is strictly before the given date
func (r *TravelRequestRepository) ListByStatusReturnedBefore(ctx context.Context, status string, before time.Time) ([]*entity.TravelRequest, error) {
	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests
		WHERE status = ? AND return_date <> '' AND return_date < ?
		ORDER BY return_date ASC, id ASC`

	return r.query(ctx, query, status, formatDate(before))
}

// List returns requests matching the filter, newest first
func (r *TravelRequestRepository) List(ctx context.Context, filter entity.TravelRequestFilter) ([]*entity.TravelRequest, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.RequesterID != "" {
		where = append(where, "requester_id = ?")
		args = append(args, filter.RequesterID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	return r.query(ctx, query, args...)
}

func (r *TravelRequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.TravelRequest, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list travel requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list travel requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.TravelRequest
	for rows.Next() {
		req, err := scanTravelRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan travel request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func scanTravelRequest(row rowScanner) (*entity.TravelRequest, error) {
	var (
		req                  entity.TravelRequest
		departure, returning string
	)

	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.Origin,
		&req.Destination,
		&departure,
		&returning,
		&req.Justification,
		&req.TransportType,
		&req.Itinerary,
		&req.FundingSource,
		&req.EstimatedValue,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.DepartureDate, err = parseDate(departure); err != nil {
		return nil, err
	}
	if req.ReturnDate, err = parseDate(returning); err != nil {
		return nil, err
	}

	return &req, nil
}

func expectOneRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: request %s changed before the write", workflow.ErrConcurrentModification, id)
	}
	return nil
}

var _ port.TravelRequestRepository = (*TravelRequestRepository)(nil)
