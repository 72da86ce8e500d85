package domain

import "time"

// BackupCredential is a permanent single-use recovery code bound to a
// session. Only the bcrypt hash is stored; the plaintext is shown to the user
// exactly once at mint time.
type BackupCredential struct {
	ID         string
	SessionID  string
	Phone      string
	CodeHash   string
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// Consumed reports whether the code has already been used.
func (b *BackupCredential) Consumed() bool { return b.ConsumedAt != nil }
