// Package audit keeps the pairing audit trail: one row per facade operation
// outcome. Writes are best-effort and never fail the request path.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"pairing-control-plane/internal/audit/domain"
	auditrepo "pairing-control-plane/internal/audit/repository"
	pairingdomain "pairing-control-plane/internal/pairing/domain"
)

// Logger records pairing events to the audit repository. It plugs into the
// facade's event sink.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger that persists to repo. repo may be nil; events
// are then dropped.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// PairingEvent writes one audit entry. Best-effort: errors are logged and not
// returned.
func (l *Logger) PairingEvent(ctx context.Context, name, sessionID string, ch pairingdomain.Channel, outcome string) {
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Channel:   string(ch),
		Action:    name,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", name, outcome, err)
	}
}

// History returns the session's audit trail, newest first. With no repository
// configured the trail is empty.
func (l *Logger) History(ctx context.Context, sessionID string, limit, offset int32) ([]*domain.AuditLog, error) {
	if l.repo == nil {
		return nil, nil
	}
	return l.repo.ListBySession(ctx, sessionID, limit, offset)
}
