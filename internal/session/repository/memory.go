package repository

import (
	"context"
	"sync"
	"time"

	"pairing-control-plane/internal/session/domain"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	r.m[s.ID] = &c
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (r *MemoryRepository) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.RefreshedAt = at
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}
