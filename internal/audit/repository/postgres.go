package repository

import (
	"context"
	"database/sql"

	"pairing-control-plane/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given
// db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, session_id, channel, action, outcome, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.SessionID, a.Channel, a.Action, a.Outcome, meta, a.CreatedAt)
	return err
}

// ListBySession returns logs for the session, newest first, paginated by
// limit and offset.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, channel, action, outcome, metadata, created_at
		 FROM audit_log
		 WHERE session_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Channel, &a.Action, &a.Outcome, &meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		if meta.Valid {
			a.Metadata = meta.String
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
