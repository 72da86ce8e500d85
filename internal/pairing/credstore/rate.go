package credstore

import (
	"sync"
	"time"

	"pairing-control-plane/internal/pairing/domain"
)

const (
	// RateWindow is the rolling window for generation attempts per (phone, channel).
	RateWindow = 5 * time.Minute
	// RateLimit is the maximum generations allowed inside one window.
	RateLimit = 5
)

type rateKey struct {
	phone   string
	channel domain.Channel
}

// RateCounter enforces the rolling generation limit per (phone, channel).
// Timestamps older than the window are dropped at check time.
type RateCounter struct {
	mu   sync.Mutex
	m    map[rateKey][]time.Time
	nowF func() time.Time
}

// NewRateCounter returns an empty rate counter.
func NewRateCounter() *RateCounter {
	return &RateCounter{
		m:    make(map[rateKey][]time.Time),
		nowF: utcNow,
	}
}

// Allow records a generation attempt for (phone, channel) and returns nil if
// it is inside the limit. When the limit is exceeded it returns a
// *domain.RateLimitedError carrying the time until the oldest attempt leaves
// the window; the attempt is not recorded.
func (c *RateCounter) Allow(phone string, channel domain.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := rateKey{phone, channel}
	now := c.nowF()
	cutoff := now.Add(-RateWindow)
	kept := c.m[k][:0]
	for _, t := range c.m[k] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.m[k] = kept
	if len(kept) >= RateLimit {
		retryAfter := kept[0].Add(RateWindow).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return &domain.RateLimitedError{RetryAfter: retryAfter}
	}
	c.m[k] = append(c.m[k], now)
	return nil
}
