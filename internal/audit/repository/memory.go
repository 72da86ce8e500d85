package repository

import (
	"context"
	"sync"

	"pairing-control-plane/internal/audit/domain"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.logs = append(r.logs, &c)
	return nil
}

func (r *MemoryRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].SessionID == sessionID {
			c := *r.logs[i]
			matched = append(matched, &c)
		}
	}
	start := int(offset)
	if start > len(matched) {
		return nil, nil
	}
	end := start + int(limit)
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}
