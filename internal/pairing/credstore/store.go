// Package credstore holds the process-wide mutable pairing state: the
// TTL-bounded credential store, per-(session,channel) attempt counters, and
// per-(phone,channel) rolling rate counters. All three are mutex-guarded maps
// with read-time expiry; no background sweep is needed for correctness.
package credstore

import (
	"context"
	"sync"
	"time"

	"pairing-control-plane/internal/pairing/domain"
)

func utcNow() time.Time { return time.Now().UTC() }

// Store caches one live credential per (sessionID, channel). Put overwrites;
// Get hides expired entries; Delete is called on successful verification.
type Store interface {
	Put(ctx context.Context, cred *domain.Credential)
	Get(ctx context.Context, sessionID string, channel domain.Channel) (*domain.Credential, bool)
	Delete(ctx context.Context, sessionID string, channel domain.Channel)
}

type credKey struct {
	sessionID string
	channel   domain.Channel
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[credKey]*domain.Credential
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[credKey]*domain.Credential),
		nowF: utcNow,
	}
}

// Put stores cred, replacing any previous credential for the same
// (sessionID, channel) key.
func (s *MemoryStore) Put(ctx context.Context, cred *domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.m[credKey{cred.SessionID, cred.Channel}] = &c
}

// Get returns the live credential for (sessionID, channel). Expired entries
// are removed and reported as absent.
func (s *MemoryStore) Get(ctx context.Context, sessionID string, channel domain.Channel) (*domain.Credential, bool) {
	k := credKey{sessionID, channel}
	s.mu.RLock()
	c, ok := s.m[k]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.Expired(s.nowF()) {
		s.mu.Lock()
		delete(s.m, k)
		s.mu.Unlock()
		return nil, false
	}
	out := *c
	return &out, true
}

// Delete removes the credential for (sessionID, channel), if any.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string, channel domain.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, credKey{sessionID, channel})
}
