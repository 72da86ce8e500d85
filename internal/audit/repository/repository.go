package repository

import (
	"context"

	"pairing-control-plane/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListBySession returns logs for the session, newest first, paginated.
	ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditLog, error)
}
