package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/xhdskyprime/rekruitment/internal/models"
)

const sessionColumns = `id, name, date, start_time, end_time, location, capacity, created_at, updated_at`

// SessionRepository handles persistence for exam sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns all sessions ordered by schedule together with their occupancy.
func (r *SessionRepository) List(ctx context.Context) ([]models.ExamSessionWithOccupancy, error) {
	const query = `SELECT s.id, s.name, s.date, s.start_time, s.end_time, s.location, s.capacity, s.created_at, s.updated_at,
        COUNT(a.id) AS assigned
        FROM exam_sessions s LEFT JOIN applicants a ON a.session_id = s.id
        GROUP BY s.id ORDER BY s.date ASC, s.start_time ASC`
	var sessions []models.ExamSessionWithOccupancy
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list exam sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ExamSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM exam_sessions WHERE id = $1`, sessionColumns)
	var session models.ExamSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam session: %w", err)
	}
	return &session, nil
}

// CountAssigned returns how many applicants reference the session.
func (r *SessionRepository) CountAssigned(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM applicants WHERE session_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count session applicants: %w", err)
	}
	return count, nil
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.ExamSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO exam_sessions (id, name, date, start_time, end_time, location, capacity, created_at, updated_at)
        VALUES (:id, :name, :date, :start_time, :end_time, :location, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create exam session: %w", err)
	}
	return nil
}

// Update modifies the session schedule and capacity. Existing assignments are kept
// even when the new capacity is lower than the current occupancy.
func (r *SessionRepository) Update(ctx context.Context, session *models.ExamSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_sessions SET name = :name, date = :date, start_time = :start_time, end_time = :end_time,
        location = :location, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update exam session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the session; assigned applicants fall back to unassigned.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete exam session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE applicants SET session_id = NULL, updated_at = $2 WHERE session_id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("release session applicants: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM exam_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}
