package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pairing-control-plane/internal/backupcred/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a backup credential repository that uses the
// given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the backup credential. The credential must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, b *domain.BackupCredential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_credentials (id, session_id, phone, code_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.SessionID, b.Phone, b.CodeHash, b.CreatedAt)
	return err
}

// ListActiveBySession returns the unconsumed credentials for sessionID,
// oldest first. Returns an empty slice when there are none.
func (r *PostgresRepository) ListActiveBySession(ctx context.Context, sessionID string) ([]*domain.BackupCredential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, phone, code_hash, created_at, consumed_at
		 FROM backup_credentials
		 WHERE session_id = $1 AND consumed_at IS NULL
		 ORDER BY created_at`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BackupCredential
	for rows.Next() {
		var b domain.BackupCredential
		var consumed sql.NullTime
		if err := rows.Scan(&b.ID, &b.SessionID, &b.Phone, &b.CodeHash, &b.CreatedAt, &consumed); err != nil {
			return nil, err
		}
		if consumed.Valid {
			t := consumed.Time
			b.ConsumedAt = &t
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// MarkConsumed stamps the credential as used. Returns an error when the row
// is missing or already consumed.
func (r *PostgresRepository) MarkConsumed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE backup_credentials SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("backup credential not found or already consumed")
	}
	return nil
}
