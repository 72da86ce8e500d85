package domain

import "time"

// AuditLog is one recorded pairing event: what was attempted on which
// session/channel and how it ended. Codes are never recorded.
type AuditLog struct {
	ID        string
	SessionID string
	Channel   string
	Action    string
	Outcome   string
	Metadata  string
	CreatedAt time.Time
}
