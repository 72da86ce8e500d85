package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"pairing-control-plane/internal/pairing/capability"
	"pairing-control-plane/internal/pairing/channel"
	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/pairing/failure"
)

type fakeStrategy struct {
	ch      domain.Channel
	genErr  error
	genCode string
	calls   int
}

func (f *fakeStrategy) Channel() domain.Channel { return f.ch }

func (f *fakeStrategy) Generate(ctx context.Context, phone, sessionID string) (*domain.Credential, error) {
	f.calls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return &domain.Credential{
		SessionID:  sessionID,
		Channel:    f.ch,
		Code:       f.genCode,
		OwnerPhone: phone,
		IssuedAt:   time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(5 * time.Minute),
	}, nil
}

func (f *fakeStrategy) Format(code string) string { return code }
func (f *fakeStrategy) Instructions() []string    { return []string{"enter the code"} }

type fakeTickets struct {
	id  string
	err error
}

func (f *fakeTickets) Open(ctx context.Context, sessionID, summary string) (string, error) {
	return f.id, f.err
}

type fakeSessions struct {
	refreshID   string
	refreshErr  error
	recreateID  string
	recreateErr error
}

func (f *fakeSessions) Refresh(ctx context.Context, sessionID string) (string, error) {
	return f.refreshID, f.refreshErr
}

func (f *fakeSessions) Recreate(ctx context.Context, phone string) (string, error) {
	return f.recreateID, f.recreateErr
}

type fakeAltAuth struct {
	ref string
	err error
}

func (f *fakeAltAuth) Initiate(ctx context.Context, sessionID string) (string, error) {
	return f.ref, f.err
}

func testSupport() domain.SupportContact {
	return domain.SupportContact{Email: "support@example.test", URL: "https://support.example.test"}
}

func newTestExecutor(reg *channel.Registry, caps capability.Checker, tickets Tickets, sessions Sessions, alt AlternateAuth) *Executor {
	store := credstore.NewMemoryStore()
	attempts := credstore.NewAttemptCounter()
	return NewExecutor(reg, NewSelector(DefaultCatalog(), caps), tickets, sessions, alt,
		store, attempts, credstore.NewRateCounter(), NewStats(), testSupport())
}

func TestHandle_RotateSkipsFailedChannel(t *testing.T) {
	primary := &fakeStrategy{ch: domain.ChannelPrimary, genCode: "12345678"}
	sms := &fakeStrategy{ch: domain.ChannelSMS, genCode: "111222"}
	reg := channel.NewRegistry(primary, sms)
	e := newTestExecutor(reg, nil, nil, nil, nil)

	a := &failure.Analysis{Severity: failure.SeverityLow, Conditions: []string{failure.CondCodeExpired}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelPrimary, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Action != ActionRotateChannel {
		t.Fatalf("out = %+v, want successful rotate_channel", out)
	}
	if out.Channel != domain.ChannelSMS {
		t.Errorf("rotated to %s, want %s", out.Channel, domain.ChannelSMS)
	}
	if primary.calls != 0 {
		t.Errorf("failed channel regenerated %d times during rotation", primary.calls)
	}
	if out.Credential == nil || out.Credential.Code != "111222" {
		t.Errorf("Credential = %+v, want code from sms strategy", out.Credential)
	}
}

func TestHandle_RotateTriesNextWhenFirstFails(t *testing.T) {
	sms := &fakeStrategy{ch: domain.ChannelSMS, genErr: domain.ErrDeliveryFailed}
	call := &fakeStrategy{ch: domain.ChannelCall, genCode: "333444"}
	reg := channel.NewRegistry(&fakeStrategy{ch: domain.ChannelPrimary, genCode: "x"}, sms, call)
	e := newTestExecutor(reg, nil, nil, nil, nil)

	a := &failure.Analysis{Severity: failure.SeverityLow, Conditions: []string{failure.CondNetworkError}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelPrimary, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Channel != domain.ChannelCall {
		t.Fatalf("out = %+v, want rotation to land on %s", out, domain.ChannelCall)
	}
	if sms.calls != 1 {
		t.Errorf("sms.calls = %d, want 1", sms.calls)
	}
}

func TestHandle_RotateRespectsRateWindow(t *testing.T) {
	sms := &fakeStrategy{ch: domain.ChannelSMS, genCode: "111222"}
	call := &fakeStrategy{ch: domain.ChannelCall, genCode: "333444"}
	reg := channel.NewRegistry(&fakeStrategy{ch: domain.ChannelPrimary, genCode: "x"}, sms, call)

	rate := credstore.NewRateCounter()
	e := NewExecutor(reg, NewSelector(DefaultCatalog(), nil), nil, nil, nil,
		credstore.NewMemoryStore(), credstore.NewAttemptCounter(), rate, NewStats(), testSupport())

	// The sms window for this phone is already spent.
	for i := 0; i < credstore.RateLimit; i++ {
		if err := rate.Allow("+15550001111", domain.ChannelSMS); err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
	}

	a := &failure.Analysis{Severity: failure.SeverityLow, Conditions: []string{failure.CondCodeExpired}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelPrimary, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Channel != domain.ChannelCall {
		t.Fatalf("out = %+v, want rotation past the rate-limited sms channel", out)
	}
	if sms.calls != 0 {
		t.Errorf("sms.calls = %d, want 0 for an exhausted window", sms.calls)
	}
}

func TestHandle_RegenerateRespectsRateWindow(t *testing.T) {
	sms := &fakeStrategy{ch: domain.ChannelSMS, genCode: "111222"}
	reg := channel.NewRegistry(sms)

	catalog := []Descriptor{{
		ID: "regenerate_code", Tier: TierAutomatic, Priority: 20, Enabled: true,
		Conditions: []string{failure.CondCodeExpired},
		Action:     ActionRegenerateCode,
	}}
	rate := credstore.NewRateCounter()
	e := NewExecutor(reg, NewSelector(catalog, nil), nil, nil, nil,
		credstore.NewMemoryStore(), credstore.NewAttemptCounter(), rate, NewStats(), testSupport())

	for i := 0; i < credstore.RateLimit; i++ {
		if err := rate.Allow("+15550001111", domain.ChannelSMS); err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
	}

	a := &failure.Analysis{Severity: failure.SeverityLow, Conditions: []string{failure.CondCodeExpired}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Success {
		t.Fatalf("out = %+v, want regeneration rejected inside an exhausted window", out)
	}
	if sms.calls != 0 {
		t.Errorf("sms.calls = %d, want 0 for an exhausted window", sms.calls)
	}
}

func TestHandle_NoMatchNonCritical(t *testing.T) {
	reg := channel.NewRegistry()
	e := newTestExecutor(reg, capability.Static(false), nil, nil, nil)

	a := &failure.Analysis{Severity: failure.SeverityMedium, Conditions: []string{"unmatched"}}
	_, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if !errors.Is(err, domain.ErrNoFallbackAvailable) {
		t.Fatalf("err = %v, want ErrNoFallbackAvailable", err)
	}
}

func TestHandle_MintBackup(t *testing.T) {
	backup := &fakeStrategy{ch: domain.ChannelBackup, genCode: "A1B2C3D4E5F6"}
	reg := channel.NewRegistry(backup)
	e := newTestExecutor(reg, capability.Static(true), nil, nil, nil)

	a := &failure.Analysis{Severity: failure.SeverityHigh, Conditions: []string{"unmatched"}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Action != ActionMintBackup || out.Channel != domain.ChannelBackup {
		t.Fatalf("out = %+v, want minted backup code", out)
	}
}

func TestHandle_DelayedRetrySchedules(t *testing.T) {
	reg := channel.NewRegistry()
	catalog := []Descriptor{{
		ID: "delayed_retry", Tier: TierEmergency, Priority: 90, Enabled: true,
		Conditions: []string{failure.CondRateLimited},
		Action:     ActionDelayedRetry,
	}}
	e := NewExecutor(reg, NewSelector(catalog, nil), nil, nil, nil,
		credstore.NewMemoryStore(), credstore.NewAttemptCounter(), credstore.NewRateCounter(), NewStats(), testSupport())
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e.nowF = func() time.Time { return fixed }

	a := &failure.Analysis{Severity: failure.SeverityCritical, Conditions: []string{failure.CondRateLimited}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Action != ActionDelayedRetry {
		t.Fatalf("out = %+v, want delayed_retry", out)
	}
	if want := fixed.Add(60 * time.Minute); !out.RetryAt.Equal(want) {
		t.Errorf("RetryAt = %v, want %v", out.RetryAt, want)
	}
}

func TestHandle_CriticalNoMatchEscalatesToNewSession(t *testing.T) {
	reg := channel.NewRegistry()
	sessions := &fakeSessions{recreateID: "s2"}
	e := newTestExecutor(reg, capability.Static(false), &fakeTickets{id: "T-1"}, sessions, nil)

	a := &failure.Analysis{Severity: failure.SeverityCritical, Conditions: []string{"unmatched"}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Action != ActionNewSession || out.NewSessionID != "s2" {
		t.Fatalf("out = %+v, want escalation to new session s2", out)
	}
}

func TestHandle_EscalationFallsThroughToTicket(t *testing.T) {
	reg := channel.NewRegistry()
	sessions := &fakeSessions{recreateErr: errors.New("directory down")}
	e := newTestExecutor(reg, capability.Static(false), &fakeTickets{id: "T-77"}, sessions, nil)

	a := &failure.Analysis{Severity: failure.SeverityCritical, Conditions: []string{"unmatched"}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Action != ActionOpenTicket || out.TicketID != "T-77" {
		t.Fatalf("out = %+v, want escalation ticket T-77", out)
	}
}

func TestHandle_EscalationResetsStateWhenDeskDown(t *testing.T) {
	reg := channel.NewRegistry()
	sessions := &fakeSessions{recreateErr: errors.New("directory down")}
	tickets := &fakeTickets{err: errors.New("desk down")}
	e := newTestExecutor(reg, capability.Static(false), tickets, sessions, nil)

	a := &failure.Analysis{Severity: failure.SeverityCritical, Conditions: []string{"unmatched"}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.Action != ActionRefreshSession {
		t.Fatalf("out = %+v, want state reset outcome", out)
	}
}

func TestHandle_TerminalCriticalFailure(t *testing.T) {
	reg := channel.NewRegistry()
	e := NewExecutor(reg, NewSelector(DefaultCatalog(), capability.Static(false)),
		nil, nil, nil, nil, nil, nil, NewStats(), testSupport())

	a := &failure.Analysis{Severity: failure.SeverityCritical, Conditions: []string{"unmatched"}}
	_, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	var cf *domain.CriticalFailureError
	if !errors.As(err, &cf) {
		t.Fatalf("err = %v, want CriticalFailureError", err)
	}
	if cf.SupportContact.Email != "support@example.test" {
		t.Errorf("SupportContact = %+v, want the configured contact", cf.SupportContact)
	}
}

func TestHandle_FailedActionAtCriticalEscalates(t *testing.T) {
	// Rotation has nowhere to go, so the critical failure walks the chain.
	reg := channel.NewRegistry()
	sessions := &fakeSessions{recreateID: "s9"}
	e := newTestExecutor(reg, capability.Static(false), nil, sessions, nil)

	a := &failure.Analysis{Severity: failure.SeverityCritical, Conditions: []string{failure.CondUnknownError}}
	out, err := e.Handle(context.Background(), "+15550001111", "s1", domain.ChannelSMS, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !out.Success || out.NewSessionID != "s9" {
		t.Fatalf("out = %+v, want escalation new session s9", out)
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		sev  failure.Severity
		want time.Duration
	}{
		{failure.SeverityLow, time.Minute},
		{failure.SeverityMedium, 5 * time.Minute},
		{failure.SeverityHigh, 15 * time.Minute},
		{failure.SeverityCritical, 60 * time.Minute},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.sev); got != tt.want {
			t.Errorf("RetryDelay(%s) = %v, want %v", tt.sev, got, tt.want)
		}
	}
}

func TestStats_Snapshot(t *testing.T) {
	s := NewStats()
	s.Record(ActionRotateChannel, true, 100*time.Millisecond)
	s.Record(ActionRotateChannel, true, 300*time.Millisecond)
	s.Record(ActionOpenTicket, false, 200*time.Millisecond)

	snap := s.Snapshot()
	if snap.Total != 3 || snap.Successful != 2 || snap.Failed != 1 {
		t.Fatalf("snapshot = %+v, want 3 total, 2 ok, 1 failed", snap)
	}
	if snap.ByAction[string(ActionRotateChannel)] != 2 {
		t.Errorf("ByAction[rotate_channel] = %d, want 2", snap.ByAction[string(ActionRotateChannel)])
	}
	if snap.AvgResponseMillis != 200 {
		t.Errorf("AvgResponseMillis = %v, want 200", snap.AvgResponseMillis)
	}
	if snap.SuccessRate < 66 || snap.SuccessRate > 67 {
		t.Errorf("SuccessRate = %v, want ~66.7", snap.SuccessRate)
	}
}
