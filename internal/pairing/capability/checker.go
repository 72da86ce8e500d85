// Package capability decides whether a session satisfies the prerequisites of
// a manual-tier fallback (e.g. an email on file for alternate auth). The
// predicate is injected so the policy is explicit instead of implicitly true.
package capability

import "context"

// Checker reports whether the session satisfies every prerequisite tag.
type Checker interface {
	Satisfied(ctx context.Context, sessionID string, requires []string) (bool, error)
}

// Static is a fixed-answer Checker, mainly for tests and for deployments that
// opt out of policy checks.
type Static bool

// Satisfied returns the fixed answer regardless of input.
func (s Static) Satisfied(ctx context.Context, sessionID string, requires []string) (bool, error) {
	return bool(s), nil
}
