package channel

import (
	"context"
	"fmt"
	"time"

	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/security"
)

const (
	emailDigits = 6
	emailTTL    = 600 * time.Second
)

// Email delivers a 6-digit code to the address bound to the session.
type Email struct {
	issuer
	mailer    MailSender
	directory EmailDirectory
}

// NewEmail returns the email strategy. mailer may be nil when no provider is
// configured; a session without a resolvable address is also unavailable.
func NewEmail(store credstore.Store, attempts *credstore.AttemptCounter, mailer MailSender, directory EmailDirectory) *Email {
	return &Email{
		issuer:    issuer{store: store, attempts: attempts, nowF: utcNow},
		mailer:    mailer,
		directory: directory,
	}
}

func (e *Email) Channel() domain.Channel { return domain.ChannelEmail }

// Generate issues a 6-digit code valid for 10 minutes and emails it to the
// session's address.
func (e *Email) Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error) {
	if e.mailer == nil || e.directory == nil {
		return nil, domain.ErrChannelUnavailable
	}
	address, err := e.directory.ResolveEmail(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve email: %w", err)
	}
	if address == "" {
		return nil, domain.ErrChannelUnavailable
	}
	code, err := security.GenerateNumericCode(emailDigits)
	if err != nil {
		return nil, err
	}
	subject := "Your device verification code"
	body := fmt.Sprintf("<p>Your verification code is <b>%s</b>. It expires in 10 minutes.</p>", groupCode(code, 3))
	if err := e.mailer.Send(ctx, address, subject, body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	cred := e.newCredential(phone, sessionID, code, domain.ChannelEmail, emailTTL)
	e.save(ctx, cred)
	return cred, nil
}

func (e *Email) Format(code string) string { return groupCode(code, 3) }

func (e *Email) Instructions() []string {
	return []string{
		"Check the inbox of the email on your account",
		"Open the verification message",
		"Enter the 6-digit code to finish linking",
	}
}
