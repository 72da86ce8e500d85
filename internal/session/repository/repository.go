package repository

import (
	"context"
	"time"

	"pairing-control-plane/internal/session/domain"
)

// Repository defines persistence for pairing sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// Touch updates RefreshedAt for id.
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
