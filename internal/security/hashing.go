package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies backup codes using bcrypt. Backup codes are
// long-lived secrets; callers must not log or persist them in plaintext.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default; backup codes are verified rarely.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of code suitable for storage.
func (h *Hasher) Hash(code []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(code, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies code against the stored hash using constant-time
// comparison. Returns nil if they match; returns an error (including
// bcrypt.ErrMismatchedHashAndPassword) if they do not or on invalid hash.
func (h *Hasher) Compare(hash string, code []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), code)
}
