package channel

import (
	"context"

	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/security"
)

// BackupVault persists minted backup codes outside the TTL cache. Implemented
// by the backupcred repository layer; the stored form is hashed.
type BackupVault interface {
	Mint(ctx context.Context, sessionID, phone, code string) error
}

// Backup mints a permanent 12-hex-character recovery code. The plaintext is
// shown once; only a hash is persisted.
type Backup struct {
	issuer
	vault BackupVault
}

// NewBackup returns the backup-code strategy. vault may be nil in stores that
// keep backup codes purely in memory (tests).
func NewBackup(store credstore.Store, attempts *credstore.AttemptCounter, vault BackupVault) *Backup {
	return &Backup{issuer: issuer{store: store, attempts: attempts, nowF: utcNow}, vault: vault}
}

func (b *Backup) Channel() domain.Channel { return domain.ChannelBackup }

// Generate mints a permanent backup credential, persists its hash, and keeps
// the live copy in the credential store for in-process verification.
func (b *Backup) Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error) {
	code, err := security.GenerateBackupCode()
	if err != nil {
		return nil, err
	}
	if b.vault != nil {
		if err := b.vault.Mint(ctx, sessionID, phone, code); err != nil {
			return nil, err
		}
	}
	cred := b.newCredential(phone, sessionID, code, domain.ChannelBackup, 0)
	b.save(ctx, cred)
	return cred, nil
}

func (b *Backup) Format(code string) string { return groupCode(code, 4) }

func (b *Backup) Instructions() []string {
	return []string{
		"Store this backup code somewhere safe",
		"It does not expire and works once",
		"Use it to recover access when no other channel is reachable",
	}
}
