package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xhdskyprime/rekruitment/internal/models"
)

// PositionRepository stores the job positions and their numbering codes.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository constructs a PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// List returns positions ordered by code.
func (r *PositionRepository) List(ctx context.Context) ([]models.Position, error) {
	const query = `SELECT id, name, code, created_at, updated_at FROM positions ORDER BY code ASC`
	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, query); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// FindByName looks a position up case-insensitively.
func (r *PositionRepository) FindByName(ctx context.Context, name string) (*models.Position, error) {
	const query = `SELECT id, name, code, created_at, updated_at FROM positions WHERE LOWER(name) = $1 LIMIT 1`
	var position models.Position
	if err := r.db.GetContext(ctx, &position, query, strings.ToLower(strings.TrimSpace(name))); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find position by name: %w", err)
	}
	return &position, nil
}

// ExistsByNameOrCode checks for duplicates before insert.
func (r *PositionRepository) ExistsByNameOrCode(ctx context.Context, name, code string) (bool, error) {
	const query = `SELECT 1 FROM positions WHERE LOWER(name) = $1 OR code = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, strings.ToLower(strings.TrimSpace(name)), code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check position: %w", err)
	}
	return true, nil
}

// Create inserts a new position.
func (r *PositionRepository) Create(ctx context.Context, position *models.Position) error {
	if position.ID == "" {
		position.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	position.CreatedAt = now
	position.UpdatedAt = now
	const query = `INSERT INTO positions (id, name, code, created_at, updated_at) VALUES (:id, :name, :code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, position); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}
