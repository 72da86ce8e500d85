// Package channel implements one generation strategy per verification
// channel. A strategy knows how to generate a code, deliver it through its
// provider, format it for display, and describe the user-facing steps.
package channel

import (
	"context"
	"strings"
	"time"

	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
)

// SMSSender delivers a text message. Implemented by the SMS provider client.
type SMSSender interface {
	Send(ctx context.Context, toPhone, body string) error
}

// VoiceCaller places a voice call that speaks the given script.
type VoiceCaller interface {
	Call(ctx context.Context, toPhone, script string) error
}

// MailSender delivers an HTML email.
type MailSender interface {
	Send(ctx context.Context, toAddress, subject, htmlBody string) error
}

// EmailDirectory resolves the email address bound to a session, or "" when
// the session has none.
type EmailDirectory interface {
	ResolveEmail(ctx context.Context, sessionID string) (string, error)
}

// Strategy is the per-channel generation contract.
type Strategy interface {
	Channel() domain.Channel
	// Generate issues a new credential for (phone, sessionID), delivers it
	// through the channel's provider, stores it, and resets the attempt
	// counter for the key. Fails with domain.ErrChannelUnavailable when no
	// provider is configured and domain.ErrDeliveryFailed when delivery errors.
	Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error)
	// Format renders a code in the channel's display grouping.
	Format(code string) string
	// Instructions returns the ordered user-facing pairing steps.
	Instructions() []string
}

func utcNow() time.Time { return time.Now().UTC() }

// issuer is the shared store/counter plumbing behind every strategy.
type issuer struct {
	store    credstore.Store
	attempts *credstore.AttemptCounter
	nowF     func() time.Time
}

func (i *issuer) save(ctx context.Context, cred *domain.Credential) {
	i.store.Put(ctx, cred)
	i.attempts.Reset(cred.SessionID, cred.Channel)
}

func (i *issuer) newCredential(phone, sessionID, code string, ch domain.Channel, ttl time.Duration) *domain.Credential {
	now := i.nowF()
	cred := &domain.Credential{
		SessionID:  sessionID,
		Channel:    ch,
		Code:       code,
		OwnerPhone: phone,
		IssuedAt:   now,
	}
	if ttl > 0 {
		cred.ExpiresAt = now.Add(ttl)
	} else {
		cred.Permanent = true
	}
	return cred
}

// groupCode splits code into size-character groups joined by dashes,
// e.g. groupCode("12345678", 4) = "1234-5678".
func groupCode(code string, size int) string {
	var groups []string
	for i := 0; i < len(code); i += size {
		end := i + size
		if end > len(code) {
			end = len(code)
		}
		groups = append(groups, code[i:end])
	}
	return strings.Join(groups, "-")
}
