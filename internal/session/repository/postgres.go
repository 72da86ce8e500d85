package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pairing-control-plane/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	email := sql.NullString{String: s.Email, Valid: s.Email != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, phone, email, created_at, refreshed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Phone, email, s.CreatedAt, s.RefreshedAt)
	return err
}

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	var email sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, phone, email, created_at, refreshed_at FROM sessions WHERE id = $1`,
		id).Scan(&s.ID, &s.Phone, &email, &s.CreatedAt, &s.RefreshedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if email.Valid {
		s.Email = email.String
	}
	return &s, nil
}

// Touch updates RefreshedAt for id.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET refreshed_at = $1 WHERE id = $2`, at, id)
	return err
}

// Delete removes the session by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}
