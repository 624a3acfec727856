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

// ProfileRepository implements port.ProfileRepository
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, logger *zap.Logger) port.ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a profile, or nil when it does not exist
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	query := `
		SELECT id, name, email, role, department, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`

	var p entity.Profile
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Role,
		&p.Department,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get profile", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// Upsert inserts the profile or replaces its directory fields
func (r *ProfileRepository) Upsert(ctx context.Context, p *entity.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO profiles (id, name, email, role, department, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			department = excluded.department,
			updated_at = excluded.updated_at
	`

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Name, p.Email, p.Role, p.Department, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert profile", zap.String("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
