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
	smsDigits = 6
	smsTTL    = 300 * time.Second
)

// SMS delivers a 6-digit code by text message.
type SMS struct {
	issuer
	sender SMSSender
}

// NewSMS returns the SMS strategy. sender may be nil when no provider is
// configured; Generate then fails with domain.ErrChannelUnavailable.
func NewSMS(store credstore.Store, attempts *credstore.AttemptCounter, sender SMSSender) *SMS {
	return &SMS{issuer: issuer{store: store, attempts: attempts, nowF: utcNow}, sender: sender}
}

func (s *SMS) Channel() domain.Channel { return domain.ChannelSMS }

// Generate issues a 6-digit code valid for 5 minutes and texts it to phone.
func (s *SMS) Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error) {
	if s.sender == nil {
		return nil, domain.ErrChannelUnavailable
	}
	code, err := security.GenerateNumericCode(smsDigits)
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", groupCode(code, 3))
	if err := s.sender.Send(ctx, phone, body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	cred := s.newCredential(phone, sessionID, code, domain.ChannelSMS, smsTTL)
	s.save(ctx, cred)
	return cred, nil
}

func (s *SMS) Format(code string) string { return groupCode(code, 3) }

func (s *SMS) Instructions() []string {
	return []string{
		"Check your phone for a text message",
		"Read the 6-digit verification code",
		"Enter the code to finish linking",
	}
}
