// Package domain holds the core pairing types: channels, credentials, and the
// result/error taxonomy shared by the generation, verification, and fallback code.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Channel identifies a verification delivery method.
type Channel string

const (
	ChannelPrimary Channel = "primary"
	ChannelSMS     Channel = "sms"
	ChannelCall    Channel = "call"
	ChannelEmail   Channel = "email"
	ChannelBackup  Channel = "backup"
)

// RotationOrder is the channel order used when a fallback rotates away from a
// failed channel. Backup codes are minted explicitly and never rotated into.
var RotationOrder = []Channel{ChannelPrimary, ChannelSMS, ChannelCall, ChannelEmail}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelPrimary, ChannelSMS, ChannelCall, ChannelEmail, ChannelBackup:
		return true
	}
	return false
}

// Credential is one outstanding verification secret bound to a session and
// channel. At most one live credential exists per (SessionID, Channel);
// issuing a new one overwrites the previous.
type Credential struct {
	SessionID  string
	Channel    Channel
	Code       string
	OwnerPhone string
	IssuedAt   time.Time
	// ExpiresAt is zero for permanent (backup) credentials.
	ExpiresAt time.Time
	Permanent bool
}

// Expired reports whether the credential is past its expiry at the given time.
// Permanent credentials never expire.
func (c *Credential) Expired(now time.Time) bool {
	if c.Permanent || c.ExpiresAt.IsZero() {
		return false
	}
	return !c.ExpiresAt.After(now)
}

// MaxVerifyAttempts is the number of wrong submissions allowed per
// (session, channel) before the attempt counter bottoms out at zero.
const MaxVerifyAttempts = 3

// Sentinel errors for the pairing engine. Only the terminal members cross the
// facade boundary; channel-level failures are translated into fallback input.
var (
	ErrChannelUnavailable  = errors.New("channel unavailable: no provider configured")
	ErrDeliveryFailed      = errors.New("delivery failed")
	ErrCredentialExpired   = errors.New("credential expired or not found")
	ErrNoFallbackAvailable = errors.New("no fallback available")
	ErrAllMethodsFailed    = errors.New("all verification methods failed")
	ErrUnknownChannel      = errors.New("unknown channel")
)

// RateLimitedError reports a generation rejected by the rolling rate window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter.Round(time.Second))
}

// CriticalFailureError is terminal: the emergency escalation chain was
// exhausted. It carries static support contact details for the caller.
type CriticalFailureError struct {
	SupportContact SupportContact
}

func (e *CriticalFailureError) Error() string {
	return "critical failure: emergency escalation exhausted"
}

// SupportContact is the static contact payload attached to terminal critical
// failures.
type SupportContact struct {
	Email string `json:"email"`
	URL   string `json:"url"`
}

// PairingResult is the outcome of a code-generation request, including any
// transparent fallback that produced it.
type PairingResult struct {
	SessionID      string
	Channel        Channel
	Code           string
	Formatted      string
	Instructions   []string
	ExpiresAt      time.Time
	Fallback       bool
	OriginalMethod Channel
	// TicketID and RetryAt are set by manual/emergency fallback outcomes that
	// require external follow-through instead of a generated code.
	TicketID string
	RetryAt  time.Time
	Message  string
}

// VerificationResult is the outcome of a code submission.
type VerificationResult struct {
	Matched           bool
	RemainingAttempts int
	// PairingToken is the signed credential handed to the protocol client on a
	// successful match.
	PairingToken string
}
