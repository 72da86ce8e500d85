// Package verify compares submitted codes against stored credentials and
// enforces the per-(session,channel) attempt limit.
package verify

import (
	"context"
	"strings"

	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/security"
)

// BackupChecker verifies a persisted backup code for a session and marks it
// consumed on match. Used when the backup credential is no longer in the TTL
// cache (e.g. after a restart).
type BackupChecker interface {
	Consume(ctx context.Context, sessionID, code string) (bool, error)
}

// Engine is the verification engine. Credentials are single-use: a match
// deletes the credential; a mismatch leaves it in place until expiry.
type Engine struct {
	store    credstore.Store
	attempts *credstore.AttemptCounter
	backup   BackupChecker
}

// NewEngine returns a verification engine. backup may be nil.
func NewEngine(store credstore.Store, attempts *credstore.AttemptCounter, backup BackupChecker) *Engine {
	return &Engine{store: store, attempts: attempts, backup: backup}
}

// Verify checks submitted against the stored credential for (sessionID, channel).
// Returns domain.ErrCredentialExpired when no live credential exists. A
// mismatch is not an error: the result carries Matched=false and the attempts
// remaining (floored at zero).
func (e *Engine) Verify(ctx context.Context, sessionID string, channel domain.Channel, submitted string) (*domain.VerificationResult, error) {
	submitted = Normalize(submitted)

	cred, ok := e.store.Get(ctx, sessionID, channel)
	if !ok {
		if channel == domain.ChannelBackup && e.backup != nil {
			return e.verifyBackup(ctx, sessionID, submitted)
		}
		return nil, domain.ErrCredentialExpired
	}

	if !security.CodeHashEqual(submitted, security.HashCode(Normalize(cred.Code))) {
		remaining := e.attempts.Fail(sessionID, channel)
		return &domain.VerificationResult{Matched: false, RemainingAttempts: remaining}, nil
	}

	if channel == domain.ChannelBackup && e.backup != nil {
		// Consume the durable record before the cached copy goes away. If the
		// vault write fails the credential stays live in both places and the
		// caller can retry; reporting success here would leave the persisted
		// code redeemable a second time.
		if _, err := e.backup.Consume(ctx, sessionID, submitted); err != nil {
			return nil, err
		}
	}
	e.store.Delete(ctx, sessionID, channel)
	return &domain.VerificationResult{Matched: true, RemainingAttempts: e.attempts.Remaining(sessionID, channel)}, nil
}

func (e *Engine) verifyBackup(ctx context.Context, sessionID, submitted string) (*domain.VerificationResult, error) {
	ok, err := e.backup.Consume(ctx, sessionID, submitted)
	if err != nil {
		return nil, err
	}
	if !ok {
		remaining := e.attempts.Fail(sessionID, domain.ChannelBackup)
		return &domain.VerificationResult{Matched: false, RemainingAttempts: remaining}, nil
	}
	return &domain.VerificationResult{Matched: true, RemainingAttempts: e.attempts.Remaining(sessionID, domain.ChannelBackup)}, nil
}

// Normalize strips formatting characters (dashes, spaces, dots) and
// uppercases so "1234-5678" and "1234 5678" compare equal to "12345678".
func Normalize(code string) string {
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}
