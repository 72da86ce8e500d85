package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"pairing-control-plane/internal/backupcred/domain"
)

// MemoryRepository is an in-memory Repository for tests and single-process
// deployments without a database.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.BackupCredential
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.BackupCredential)}
}

func (r *MemoryRepository) Create(ctx context.Context, b *domain.BackupCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *b
	r.m[b.ID] = &c
	return nil
}

func (r *MemoryRepository) ListActiveBySession(ctx context.Context, sessionID string) ([]*domain.BackupCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.BackupCredential
	for _, b := range r.m {
		if b.SessionID == sessionID && !b.Consumed() {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRepository) MarkConsumed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.m[id]
	if !ok || b.Consumed() {
		return errors.New("backup credential not found or already consumed")
	}
	t := time.Now().UTC()
	b.ConsumedAt = &t
	return nil
}
