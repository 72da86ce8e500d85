// Package backupcred manages permanent single-use recovery codes: minting
// (bcrypt hash at rest) and consumption (compare then stamp). It backs the
// backup channel strategy and the verification engine's vault check.
package backupcred

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pairing-control-plane/internal/backupcred/domain"
	"pairing-control-plane/internal/backupcred/repository"
	"pairing-control-plane/internal/pairing/verify"
	"pairing-control-plane/internal/security"
)

// Vault mints and consumes backup codes against the repository. It satisfies
// both the backup channel's vault and the verifier's backup checker.
type Vault struct {
	repo   repository.Repository
	hasher *security.Hasher
}

// NewVault returns a vault over repo hashing with the given bcrypt hasher.
func NewVault(repo repository.Repository, hasher *security.Hasher) *Vault {
	return &Vault{repo: repo, hasher: hasher}
}

// Mint persists the bcrypt hash of a freshly generated code.
func (v *Vault) Mint(ctx context.Context, sessionID, phone, code string) error {
	hash, err := v.hasher.Hash([]byte(verify.Normalize(code)))
	if err != nil {
		return err
	}
	return v.repo.Create(ctx, &domain.BackupCredential{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Phone:     phone,
		CodeHash:  hash,
		CreatedAt: time.Now().UTC(),
	})
}

// Consume checks code against the session's unconsumed credentials and marks
// the matching one used. Returns (false, nil) when nothing matches; a wrong
// code is not a repository error.
func (v *Vault) Consume(ctx context.Context, sessionID, code string) (bool, error) {
	active, err := v.repo.ListActiveBySession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	normalized := []byte(verify.Normalize(code))
	for _, b := range active {
		if v.hasher.Compare(b.CodeHash, normalized) == nil {
			if err := v.repo.MarkConsumed(ctx, b.ID); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}
