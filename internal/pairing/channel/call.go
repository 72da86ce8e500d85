package channel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/security"
)

const (
	callDigits = 6
	callTTL    = 300 * time.Second
)

// Call speaks a 6-digit code over a synthesized voice call. The code is read
// twice so the user can catch it without a replay.
type Call struct {
	issuer
	caller VoiceCaller
}

// NewCall returns the voice-call strategy. caller may be nil when no provider
// is configured.
func NewCall(store credstore.Store, attempts *credstore.AttemptCounter, caller VoiceCaller) *Call {
	return &Call{issuer: issuer{store: store, attempts: attempts, nowF: utcNow}, caller: caller}
}

func (c *Call) Channel() domain.Channel { return domain.ChannelCall }

// Generate issues a 6-digit code valid for 5 minutes and places the call.
func (c *Call) Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error) {
	if c.caller == nil {
		return nil, domain.ErrChannelUnavailable
	}
	code, err := security.GenerateNumericCode(callDigits)
	if err != nil {
		return nil, err
	}
	if err := c.caller.Call(ctx, phone, spokenScript(code)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	cred := c.newCredential(phone, sessionID, code, domain.ChannelCall, callTTL)
	c.save(ctx, cred)
	return cred, nil
}

func (c *Call) Format(code string) string { return groupCode(code, 3) }

func (c *Call) Instructions() []string {
	return []string{
		"Answer the incoming verification call",
		"Listen for the 6-digit code; it is read twice",
		"Enter the code to finish linking",
	}
}

// spokenScript spells out the digits with pauses and repeats the code once.
func spokenScript(code string) string {
	spelled := strings.Join(strings.Split(code, ""), ", ")
	return fmt.Sprintf("Your verification code is: %s. I repeat: %s.", spelled, spelled)
}
