package domain

import "time"

// Session is one device-pairing session: the account phone it belongs to plus
// the optional recovery email on file.
type Session struct {
	ID          string
	Phone       string
	Email       string
	CreatedAt   time.Time
	RefreshedAt time.Time
}
