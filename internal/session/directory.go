// Package session is the pairing session directory: who a session belongs to,
// the recovery email on file, and the refresh/recreate operations the
// fallback executor relies on.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pairing-control-plane/internal/session/domain"
	"pairing-control-plane/internal/session/repository"
)

// ErrSessionNotFound is returned when an operation names an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Directory exposes session lookups and lifecycle operations over a
// repository. It serves the email channel (ResolveEmail), the token minting
// path (ResolvePhone), and the fallback executor (Refresh, Recreate).
type Directory struct {
	repo repository.Repository
	nowF func() time.Time
}

// NewDirectory returns a directory over repo.
func NewDirectory(repo repository.Repository) *Directory {
	return &Directory{repo: repo, nowF: func() time.Time { return time.Now().UTC() }}
}

// Register creates a session for phone with an optional recovery email and
// returns its id.
func (d *Directory) Register(ctx context.Context, phone, email string) (string, error) {
	now := d.nowF()
	s := &domain.Session{
		ID:          uuid.NewString(),
		Phone:       phone,
		Email:       email,
		CreatedAt:   now,
		RefreshedAt: now,
	}
	if err := d.repo.Create(ctx, s); err != nil {
		return "", err
	}
	return s.ID, nil
}

// ResolveEmail returns the recovery email bound to sessionID, or "" when the
// session has none on file.
func (d *Directory) ResolveEmail(ctx context.Context, sessionID string) (string, error) {
	s, err := d.repo.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrSessionNotFound
	}
	return s.Email, nil
}

// ResolvePhone returns the phone number bound to sessionID.
func (d *Directory) ResolvePhone(ctx context.Context, sessionID string) (string, error) {
	s, err := d.repo.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrSessionNotFound
	}
	return s.Phone, nil
}

// Refresh re-keys the session: a new id is issued carrying the same phone and
// email, and the old record is removed. Returns the new session id.
func (d *Directory) Refresh(ctx context.Context, sessionID string) (string, error) {
	old, err := d.repo.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if old == nil {
		return "", ErrSessionNotFound
	}
	// The new record inherits the old refresh timestamp; Touch then stamps
	// the refresh moment through the repository like any other keep-alive.
	fresh := &domain.Session{
		ID:          uuid.NewString(),
		Phone:       old.Phone,
		Email:       old.Email,
		CreatedAt:   old.CreatedAt,
		RefreshedAt: old.RefreshedAt,
	}
	if err := d.repo.Create(ctx, fresh); err != nil {
		return "", err
	}
	if err := d.repo.Touch(ctx, fresh.ID, d.nowF()); err != nil {
		return "", err
	}
	if err := d.repo.Delete(ctx, sessionID); err != nil {
		return "", err
	}
	return fresh.ID, nil
}

// Recreate starts a brand-new session for phone, used by the emergency
// escalation when the current session is beyond recovery.
func (d *Directory) Recreate(ctx context.Context, phone string) (string, error) {
	return d.Register(ctx, phone, "")
}
