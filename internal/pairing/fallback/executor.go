package fallback

import (
	"context"
	"fmt"
	"log"
	"time"

	"pairing-control-plane/internal/pairing/channel"
	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/pairing/failure"
)

// Tickets opens support escalations. Implemented by the support desk client.
type Tickets interface {
	Open(ctx context.Context, sessionID, summary string) (ticketID string, err error)
}

// Sessions derives or recreates session identifiers for the refresh and
// new-session actions. Implemented by the session repository layer.
type Sessions interface {
	Refresh(ctx context.Context, sessionID string) (newSessionID string, err error)
	Recreate(ctx context.Context, phone string) (newSessionID string, err error)
}

// AlternateAuth hands the user off to an out-of-band authentication flow
// (email link, 2FA). Implemented by an external collaborator.
type AlternateAuth interface {
	Initiate(ctx context.Context, sessionID string) (reference string, err error)
}

// Outcome is the structured result of one executed fallback action.
type Outcome struct {
	Success      bool
	Action       Action
	StrategyID   string
	Message      string
	Channel      domain.Channel
	Credential   *domain.Credential
	TicketID     string
	NewSessionID string
	RetryAt      time.Time
	Guidance     []string
}

// Executor runs the selected fallback action and, when a critical failure
// cannot be recovered, walks the fixed emergency escalation chain.
type Executor struct {
	registry *channel.Registry
	selector *Selector
	tickets  Tickets
	sessions Sessions
	altAuth  AlternateAuth
	store    credstore.Store
	attempts *credstore.AttemptCounter
	rate     *credstore.RateCounter
	stats    *Stats
	support  domain.SupportContact
	nowF     func() time.Time
}

// NewExecutor wires the executor. tickets, sessions, and altAuth may be nil;
// actions needing an absent collaborator fail and feed the escalation path.
// rate is the same counter the facade consults, so codes issued through
// rotation or regeneration stay inside the per-(phone, channel) window.
func NewExecutor(
	registry *channel.Registry,
	selector *Selector,
	tickets Tickets,
	sessions Sessions,
	altAuth AlternateAuth,
	store credstore.Store,
	attempts *credstore.AttemptCounter,
	rate *credstore.RateCounter,
	stats *Stats,
	support domain.SupportContact,
) *Executor {
	return &Executor{
		registry: registry,
		selector: selector,
		tickets:  tickets,
		sessions: sessions,
		altAuth:  altAuth,
		store:    store,
		attempts: attempts,
		rate:     rate,
		stats:    stats,
		support:  support,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

func (e *Executor) allowGenerate(phone string, ch domain.Channel) error {
	if e.rate == nil {
		return nil
	}
	return e.rate.Allow(phone, ch)
}

// Stats exposes the executor's counters for the facade's aggregate view.
func (e *Executor) Stats() *Stats { return e.stats }

// Handle selects and executes the best fallback for the classified failure.
// Returns domain.ErrNoFallbackAvailable when nothing matches at a non-critical
// severity. At critical severity an empty or failed selection flows into the
// escalation chain; only an exhausted chain returns *domain.CriticalFailureError.
func (e *Executor) Handle(ctx context.Context, phone, sessionID string, failedChannel domain.Channel, a *failure.Analysis) (*Outcome, error) {
	started := e.nowF()
	desc, err := e.selector.Select(ctx, sessionID, a)
	if err != nil {
		return nil, err
	}
	if desc == nil {
		if a.Severity == failure.SeverityCritical {
			return e.escalate(ctx, phone, sessionID, started)
		}
		return nil, domain.ErrNoFallbackAvailable
	}

	out := e.execute(ctx, desc, phone, sessionID, failedChannel, a)
	e.stats.Record(out.Action, out.Success, e.nowF().Sub(started))
	if !out.Success && a.Severity == failure.SeverityCritical {
		return e.escalate(ctx, phone, sessionID, started)
	}
	return out, nil
}

func (e *Executor) execute(ctx context.Context, desc *Descriptor, phone, sessionID string, failedChannel domain.Channel, a *failure.Analysis) *Outcome {
	out := &Outcome{Action: desc.Action, StrategyID: desc.ID}
	switch desc.Action {
	case ActionRotateChannel:
		e.rotate(ctx, out, phone, sessionID, failedChannel)
	case ActionRegenerateCode:
		e.regenerate(ctx, out, phone, sessionID, failedChannel)
	case ActionRefreshSession:
		e.refreshSession(ctx, out, sessionID)
	case ActionMintBackup:
		e.mintBackup(ctx, out, phone, sessionID)
	case ActionAlternateAuth:
		e.alternateAuth(ctx, out, sessionID)
	case ActionDeviceGuidance:
		out.Success = true
		out.Message = "Continue from another device"
		out.Guidance = []string{
			"Open the messaging app on a device that is already linked",
			"Approve the new device from Settings > Linked Devices",
		}
	case ActionOpenTicket:
		e.openTicket(ctx, out, sessionID)
	case ActionNewSession:
		e.newSession(ctx, out, phone)
	case ActionDelayedRetry:
		out.Success = true
		out.RetryAt = e.nowF().Add(RetryDelay(a.Severity))
		out.Message = fmt.Sprintf("Retry scheduled for %s", out.RetryAt.Format(time.RFC3339))
	default:
		out.Message = fmt.Sprintf("unknown action %q", desc.Action)
	}
	return out
}

func (e *Executor) rotate(ctx context.Context, out *Outcome, phone, sessionID string, failedChannel domain.Channel) {
	for _, ch := range e.registry.RotateFrom(failedChannel) {
		strat, ok := e.registry.Get(ch)
		if !ok {
			continue
		}
		if err := e.allowGenerate(phone, ch); err != nil {
			log.Printf("fallback: rotate to %s rate limited for session %s", ch, sessionID)
			continue
		}
		cred, err := strat.Generate(ctx, phone, sessionID)
		if err != nil {
			log.Printf("fallback: rotate to %s failed for session %s: %v", ch, sessionID, err)
			continue
		}
		out.Success = true
		out.Channel = ch
		out.Credential = cred
		out.Message = fmt.Sprintf("Switched to %s verification", ch)
		return
	}
	out.Message = "no alternate channel succeeded"
}

func (e *Executor) regenerate(ctx context.Context, out *Outcome, phone, sessionID string, failedChannel domain.Channel) {
	strat, ok := e.registry.Get(failedChannel)
	if !ok {
		out.Message = fmt.Sprintf("channel %s not enabled", failedChannel)
		return
	}
	if err := e.allowGenerate(phone, failedChannel); err != nil {
		out.Message = fmt.Sprintf("regenerate on %s rate limited: %v", failedChannel, err)
		return
	}
	cred, err := strat.Generate(ctx, phone, sessionID)
	if err != nil {
		out.Message = fmt.Sprintf("regenerate on %s failed: %v", failedChannel, err)
		return
	}
	out.Success = true
	out.Channel = failedChannel
	out.Credential = cred
	out.Message = fmt.Sprintf("Issued a fresh %s code", failedChannel)
}

func (e *Executor) refreshSession(ctx context.Context, out *Outcome, sessionID string) {
	if e.sessions == nil {
		out.Message = "session service not configured"
		return
	}
	newID, err := e.sessions.Refresh(ctx, sessionID)
	if err != nil {
		out.Message = fmt.Sprintf("session refresh failed: %v", err)
		return
	}
	out.Success = true
	out.NewSessionID = newID
	out.Message = "Session refreshed; request a new code"
}

func (e *Executor) mintBackup(ctx context.Context, out *Outcome, phone, sessionID string) {
	strat, ok := e.registry.Get(domain.ChannelBackup)
	if !ok {
		out.Message = "backup channel not enabled"
		return
	}
	cred, err := strat.Generate(ctx, phone, sessionID)
	if err != nil {
		out.Message = fmt.Sprintf("backup mint failed: %v", err)
		return
	}
	out.Success = true
	out.Channel = domain.ChannelBackup
	out.Credential = cred
	out.Message = "Backup code issued; store it safely"
}

func (e *Executor) alternateAuth(ctx context.Context, out *Outcome, sessionID string) {
	if e.altAuth == nil {
		out.Message = "alternate authentication not configured"
		return
	}
	ref, err := e.altAuth.Initiate(ctx, sessionID)
	if err != nil {
		out.Message = fmt.Sprintf("alternate auth handoff failed: %v", err)
		return
	}
	out.Success = true
	out.Message = fmt.Sprintf("Follow the emailed verification link (ref %s)", ref)
}

func (e *Executor) openTicket(ctx context.Context, out *Outcome, sessionID string) {
	if e.tickets == nil {
		out.Message = "support desk not configured"
		return
	}
	id, err := e.tickets.Open(ctx, sessionID, "pairing verification exhausted automatic recovery")
	if err != nil {
		out.Message = fmt.Sprintf("ticket open failed: %v", err)
		return
	}
	out.Success = true
	out.TicketID = id
	out.Message = fmt.Sprintf("Support ticket %s opened", id)
}

func (e *Executor) newSession(ctx context.Context, out *Outcome, phone string) {
	if e.sessions == nil {
		out.Message = "session service not configured"
		return
	}
	newID, err := e.sessions.Recreate(ctx, phone)
	if err != nil {
		out.Message = fmt.Sprintf("session recreate failed: %v", err)
		return
	}
	out.Success = true
	out.NewSessionID = newID
	out.Message = "New session created; pair again from the start"
}

// escalate walks the fixed critical chain: force a new session, open a
// support ticket, then reset the session's verification state. The first
// success wins; an exhausted chain is the terminal critical failure.
func (e *Executor) escalate(ctx context.Context, phone, sessionID string, started time.Time) (*Outcome, error) {
	if e.sessions != nil {
		if newID, err := e.sessions.Recreate(ctx, phone); err == nil {
			out := &Outcome{
				Success:      true,
				Action:       ActionNewSession,
				StrategyID:   "critical_escalation",
				NewSessionID: newID,
				Message:      "Recovered with a new session; pair again from the start",
			}
			e.stats.Record(out.Action, true, e.nowF().Sub(started))
			return out, nil
		} else {
			log.Printf("fallback: escalation session recreate failed for %s: %v", sessionID, err)
		}
	}
	if e.tickets != nil {
		if id, err := e.tickets.Open(ctx, sessionID, "critical pairing failure"); err == nil {
			out := &Outcome{
				Success:    true,
				Action:     ActionOpenTicket,
				StrategyID: "critical_escalation",
				TicketID:   id,
				Message:    fmt.Sprintf("Support ticket %s opened for critical failure", id),
			}
			e.stats.Record(out.Action, true, e.nowF().Sub(started))
			return out, nil
		} else {
			log.Printf("fallback: escalation ticket open failed for %s: %v", sessionID, err)
		}
	}
	if e.store != nil && e.attempts != nil {
		for _, ch := range []domain.Channel{domain.ChannelPrimary, domain.ChannelSMS, domain.ChannelCall, domain.ChannelEmail} {
			e.store.Delete(ctx, sessionID, ch)
			e.attempts.Reset(sessionID, ch)
		}
		out := &Outcome{
			Success:    true,
			Action:     ActionRefreshSession,
			StrategyID: "critical_escalation",
			Message:    "Verification state reset; request a new code",
		}
		e.stats.Record(out.Action, true, e.nowF().Sub(started))
		return out, nil
	}
	e.stats.Record(ActionOpenTicket, false, e.nowF().Sub(started))
	return nil, &domain.CriticalFailureError{SupportContact: e.support}
}

// RetryDelay maps severity to the advisory delay before the caller should
// re-request generation.
func RetryDelay(s failure.Severity) time.Duration {
	switch s {
	case failure.SeverityLow:
		return time.Minute
	case failure.SeverityMedium:
		return 5 * time.Minute
	case failure.SeverityHigh:
		return 15 * time.Minute
	default:
		return 60 * time.Minute
	}
}
