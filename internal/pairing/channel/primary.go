package channel

import (
	"context"
	"time"

	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/security"
)

const (
	primaryDigits = 8
	primaryTTL    = 600 * time.Second
)

// Primary is the display-only pairing code: the user types it into the device
// being linked. No delivery provider is involved.
type Primary struct {
	issuer
}

// NewPrimary returns the primary-code strategy.
func NewPrimary(store credstore.Store, attempts *credstore.AttemptCounter) *Primary {
	return &Primary{issuer{store: store, attempts: attempts, nowF: utcNow}}
}

func (p *Primary) Channel() domain.Channel { return domain.ChannelPrimary }

// Generate issues an 8-digit display code valid for 10 minutes.
func (p *Primary) Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error) {
	code, err := security.GenerateNumericCode(primaryDigits)
	if err != nil {
		return nil, err
	}
	cred := p.newCredential(phone, sessionID, code, domain.ChannelPrimary, primaryTTL)
	p.save(ctx, cred)
	return cred, nil
}

func (p *Primary) Format(code string) string { return groupCode(code, 4) }

func (p *Primary) Instructions() []string {
	return []string{
		"Open the messaging app on your phone",
		"Go to Settings > Linked Devices > Link a Device",
		"Choose \"Link with phone number instead\"",
		"Enter the pairing code shown below",
	}
}
