package fallback

import (
	"context"
	"testing"

	"pairing-control-plane/internal/pairing/capability"
	"pairing-control-plane/internal/pairing/failure"
)

func analysis(sev failure.Severity, conds ...string) *failure.Analysis {
	return &failure.Analysis{Category: failure.CategoryUnknown, Severity: sev, Conditions: conds}
}

func TestSelect_AutomaticByConditionOverlap(t *testing.T) {
	s := NewSelector(DefaultCatalog(), nil)

	d, err := s.Select(context.Background(), "s1", analysis(failure.SeverityMedium, failure.CondCodeExpired))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d == nil || d.ID != "rotate_channel" {
		t.Fatalf("d = %+v, want rotate_channel (lowest priority among matches)", d)
	}
}

func TestSelect_ManualTierRequiresHighSeverity(t *testing.T) {
	s := NewSelector(DefaultCatalog(), capability.Static(true))

	// Medium severity with no matching automatic conditions: nothing eligible.
	d, err := s.Select(context.Background(), "s1", analysis(failure.SeverityMedium, "no_such_condition"))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d != nil {
		t.Fatalf("d = %+v, want nil below high severity", d)
	}

	// High severity opens the manual tier.
	d, err = s.Select(context.Background(), "s1", analysis(failure.SeverityHigh, "no_such_condition"))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d == nil || d.ID != "backup_code" {
		t.Fatalf("d = %+v, want backup_code", d)
	}
}

func TestSelect_ManualTierGatedByCapability(t *testing.T) {
	s := NewSelector(DefaultCatalog(), capability.Static(false))

	d, err := s.Select(context.Background(), "s1", analysis(failure.SeverityHigh, "no_such_condition"))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d != nil {
		t.Fatalf("d = %+v, want nil when capabilities are denied", d)
	}
}

func TestSelect_EmergencyOnlyAtCritical(t *testing.T) {
	s := NewSelector(DefaultCatalog(), capability.Static(false))

	d, err := s.Select(context.Background(), "s1", analysis(failure.SeverityHigh, failure.CondAllFailed))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d != nil {
		t.Fatalf("d = %+v, want nil: emergency tier closed below critical", d)
	}

	d, err = s.Select(context.Background(), "s1", analysis(failure.SeverityCritical, failure.CondAllFailed))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d == nil || d.ID != "support_ticket" {
		t.Fatalf("d = %+v, want support_ticket", d)
	}
}

func TestSelect_LowestPriorityAcrossTiers(t *testing.T) {
	s := NewSelector(DefaultCatalog(), capability.Static(true))

	// Critical with an automatic match: the automatic row still wins on priority.
	d, err := s.Select(context.Background(), "s1", analysis(failure.SeverityCritical, failure.CondCodeExpired, failure.CondAllFailed))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d == nil || d.ID != "rotate_channel" {
		t.Fatalf("d = %+v, want rotate_channel (priority 10 beats every other tier)", d)
	}
}

func TestSelect_Deterministic(t *testing.T) {
	s := NewSelector(DefaultCatalog(), capability.Static(true))
	a := analysis(failure.SeverityCritical, failure.CondRateLimited, failure.CondAllFailed)

	first, err := s.Select(context.Background(), "s1", a)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	second, err := s.Select(context.Background(), "s1", a)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if first == nil || second == nil || first.ID != second.ID {
		t.Errorf("Select not deterministic: %+v vs %+v", first, second)
	}
}

func TestSelect_DisabledDescriptorSkipped(t *testing.T) {
	catalog := DefaultCatalog()
	for i := range catalog {
		if catalog[i].ID == "rotate_channel" {
			catalog[i].Enabled = false
		}
	}
	s := NewSelector(catalog, nil)

	d, err := s.Select(context.Background(), "s1", analysis(failure.SeverityMedium, failure.CondCodeExpired))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if d == nil || d.ID != "regenerate_code" {
		t.Fatalf("d = %+v, want regenerate_code when rotate_channel is disabled", d)
	}
}
