package credstore

import (
	"sync"

	"pairing-control-plane/internal/pairing/domain"
)

// AttemptCounter tracks failed verification attempts per (sessionID, channel),
// bounded at domain.MaxVerifyAttempts. Independent of the rate counter.
type AttemptCounter struct {
	mu sync.Mutex
	m  map[credKey]int
}

// NewAttemptCounter returns an empty attempt counter.
func NewAttemptCounter() *AttemptCounter {
	return &AttemptCounter{m: make(map[credKey]int)}
}

// Fail records one failed attempt and returns the attempts remaining,
// floored at zero.
func (c *AttemptCounter) Fail(sessionID string, channel domain.Channel) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := credKey{sessionID, channel}
	if c.m[k] < domain.MaxVerifyAttempts {
		c.m[k]++
	}
	return domain.MaxVerifyAttempts - c.m[k]
}

// Remaining returns the attempts remaining without recording a failure.
func (c *AttemptCounter) Remaining(sessionID string, channel domain.Channel) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.MaxVerifyAttempts - c.m[credKey{sessionID, channel}]
}

// Reset clears the counter for (sessionID, channel). Called whenever a new
// credential is issued for the key.
func (c *AttemptCounter) Reset(sessionID string, channel domain.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, credKey{sessionID, channel})
}
