// Package service is the orchestration facade over generation, verification,
// and fallback. Channel-level failures never cross this boundary raw; they are
// classified and recovered from, and only the terminal taxonomy members
// (rate limited, all methods failed, no fallback, critical failure) reach the
// caller as errors.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"pairing-control-plane/internal/pairing/channel"
	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/pairing/failure"
	"pairing-control-plane/internal/pairing/fallback"
	"pairing-control-plane/internal/pairing/verify"
	"pairing-control-plane/internal/security"
)

// Events receives best-effort notifications of facade outcomes. Implemented
// by the audit logger and the telemetry emitter. Implementations must not
// block the request path.
type Events interface {
	PairingEvent(ctx context.Context, name, sessionID string, ch domain.Channel, outcome string)
}

// FanOut broadcasts each event to every sink.
type FanOut []Events

func (f FanOut) PairingEvent(ctx context.Context, name, sessionID string, ch domain.Channel, outcome string) {
	for _, e := range f {
		e.PairingEvent(ctx, name, sessionID, ch, outcome)
	}
}

// Directory resolves the phone number bound to a session. Used to fill token
// claims when the verified credential is no longer cached (backup codes
// verified from the vault after a restart).
type Directory interface {
	ResolvePhone(ctx context.Context, sessionID string) (string, error)
}

// Service wires the pairing engine together behind four operations:
// RequestCode, SubmitCode, AvailableChannels, and Statistics.
type Service struct {
	registry  *channel.Registry
	rate      *credstore.RateCounter
	store     credstore.Store
	verifier  *verify.Engine
	executor  *fallback.Executor
	tokens    *security.PairTokenProvider
	directory Directory
	events    Events
	nowF      func() time.Time
}

// New returns the facade. tokens, directory, and events may be nil; a nil
// tokens provider means successful verifications carry no pairing token.
func New(
	registry *channel.Registry,
	rate *credstore.RateCounter,
	store credstore.Store,
	verifier *verify.Engine,
	executor *fallback.Executor,
	tokens *security.PairTokenProvider,
	directory Directory,
	events Events,
) *Service {
	return &Service{
		registry:  registry,
		rate:      rate,
		store:     store,
		verifier:  verifier,
		executor:  executor,
		tokens:    tokens,
		directory: directory,
		events:    events,
		nowF:      func() time.Time { return time.Now().UTC() },
	}
}

// RequestCode issues a verification code on the preferred channel. When the
// channel is disabled or its delivery fails, the failure is classified and the
// fallback executor chains through alternatives transparently; the result then
// carries Fallback=true and the original channel. Rate limiting applies to the
// preferred channel before any generation work.
func (s *Service) RequestCode(ctx context.Context, phone, sessionID string, preferred domain.Channel) (*domain.PairingResult, error) {
	if !preferred.Valid() {
		return nil, domain.ErrUnknownChannel
	}
	if err := s.rate.Allow(phone, preferred); err != nil {
		s.emit(ctx, "request_code", sessionID, preferred, "rate_limited")
		return nil, err
	}

	started := s.nowF()
	if strat, ok := s.registry.Get(preferred); ok {
		cred, err := strat.Generate(ctx, phone, sessionID)
		if err == nil {
			s.emit(ctx, "request_code", sessionID, preferred, "issued")
			return s.issuedResult(strat, cred, false, ""), nil
		}
		log.Printf("pairing: generation on %s failed for session %s: %v", preferred, sessionID, err)
		return s.recover(ctx, phone, sessionID, preferred, err.Error(), started)
	}
	return s.recover(ctx, phone, sessionID, preferred, domain.ErrChannelUnavailable.Error(), started)
}

// recover classifies the generation failure and runs the fallback executor.
func (s *Service) recover(ctx context.Context, phone, sessionID string, failed domain.Channel, rawMessage string, started time.Time) (*domain.PairingResult, error) {
	a := failure.Classify(rawMessage, failure.Context{Elapsed: s.nowF().Sub(started)})
	out, err := s.executor.Handle(ctx, phone, sessionID, failed, a)
	if err != nil {
		if errors.Is(err, domain.ErrNoFallbackAvailable) {
			s.emit(ctx, "request_code", sessionID, failed, "all_methods_failed")
			return nil, domain.ErrAllMethodsFailed
		}
		s.emit(ctx, "request_code", sessionID, failed, "critical_failure")
		return nil, err
	}
	if !out.Success {
		s.emit(ctx, "request_code", sessionID, failed, "all_methods_failed")
		return nil, domain.ErrAllMethodsFailed
	}
	s.emit(ctx, "request_code", sessionID, failed, "fallback_"+string(out.Action))

	if out.Credential != nil {
		strat, ok := s.registry.Get(out.Channel)
		if !ok {
			return nil, domain.ErrAllMethodsFailed
		}
		return s.issuedResult(strat, out.Credential, true, failed), nil
	}

	// Manual and emergency outcomes without a code: structured guidance for
	// external follow-through.
	res := &domain.PairingResult{
		SessionID:      sessionID,
		Channel:        failed,
		Fallback:       true,
		OriginalMethod: failed,
		TicketID:       out.TicketID,
		RetryAt:        out.RetryAt,
		Message:        out.Message,
		Instructions:   out.Guidance,
	}
	if out.NewSessionID != "" {
		res.SessionID = out.NewSessionID
	}
	return res, nil
}

func (s *Service) issuedResult(strat channel.Strategy, cred *domain.Credential, viaFallback bool, original domain.Channel) *domain.PairingResult {
	return &domain.PairingResult{
		SessionID:      cred.SessionID,
		Channel:        cred.Channel,
		Code:           cred.Code,
		Formatted:      strat.Format(cred.Code),
		Instructions:   strat.Instructions(),
		ExpiresAt:      cred.ExpiresAt,
		Fallback:       viaFallback,
		OriginalMethod: original,
	}
}

// SubmitCode verifies a submitted code. A mismatch is in-band: Matched=false
// with the remaining attempts. On a match a pairing token is minted when a
// token provider is configured. Expiry surfaces as domain.ErrCredentialExpired;
// recovery is the caller's choice via RequestCode, since verification failures
// are low severity until attempts run out.
func (s *Service) SubmitCode(ctx context.Context, sessionID string, ch domain.Channel, code string) (*domain.VerificationResult, error) {
	if !ch.Valid() {
		return nil, domain.ErrUnknownChannel
	}

	// Capture the owner phone before a successful verify deletes the credential.
	var phone string
	if cred, ok := s.store.Get(ctx, sessionID, ch); ok {
		phone = cred.OwnerPhone
	}

	res, err := s.verifier.Verify(ctx, sessionID, ch, code)
	if err != nil {
		s.emit(ctx, "submit_code", sessionID, ch, "expired")
		return nil, err
	}
	if !res.Matched {
		if res.RemainingAttempts == 0 {
			s.emit(ctx, "submit_code", sessionID, ch, "attempts_exhausted")
		} else {
			s.emit(ctx, "submit_code", sessionID, ch, "mismatch")
		}
		return res, nil
	}

	if s.tokens != nil {
		if phone == "" && s.directory != nil {
			if p, derr := s.directory.ResolvePhone(ctx, sessionID); derr == nil {
				phone = p
			}
		}
		token, _, _, terr := s.tokens.Issue(sessionID, phone, string(ch))
		if terr != nil {
			log.Printf("pairing: token mint failed for session %s: %v", sessionID, terr)
		} else {
			res.PairingToken = token
		}
	}
	s.emit(ctx, "submit_code", sessionID, ch, "verified")
	return res, nil
}

// AvailableChannels returns the enabled channels in rotation priority order.
func (s *Service) AvailableChannels() []domain.Channel {
	return s.registry.Enabled()
}

// Statistics returns the aggregate fallback counters computed on demand.
func (s *Service) Statistics() fallback.Snapshot {
	return s.executor.Stats().Snapshot()
}

func (s *Service) emit(ctx context.Context, name, sessionID string, ch domain.Channel, outcome string) {
	if s.events != nil {
		s.events.PairingEvent(ctx, name, sessionID, ch, outcome)
	}
}
