package repository

import (
	"context"

	"pairing-control-plane/internal/backupcred/domain"
)

// Repository defines persistence for backup credentials.
type Repository interface {
	Create(ctx context.Context, b *domain.BackupCredential) error
	// ListActiveBySession returns the unconsumed credentials for a session.
	ListActiveBySession(ctx context.Context, sessionID string) ([]*domain.BackupCredential, error)
	// MarkConsumed stamps the credential as used. Consuming twice is an error.
	MarkConsumed(ctx context.Context, id string) error
}
