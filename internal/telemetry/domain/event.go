package domain

import "time"

// Event is one structured pairing event bound for the telemetry pipeline.
// Metadata never contains codes or tokens.
type Event struct {
	SessionID string
	Channel   string
	EventType string
	Outcome   string
	Source    string
	CreatedAt time.Time
}
