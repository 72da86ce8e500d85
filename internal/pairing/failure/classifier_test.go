package failure

import (
	"testing"
	"time"
)

func TestClassify_Categories(t *testing.T) {
	cases := []struct {
		msg      string
		category Category
		severity Severity
		cond     string
	}{
		{"code expired after 300 seconds", CategoryExpired, SeverityMedium, CondCodeExpired},
		{"request timed out", CategoryExpired, SeverityMedium, CondCodeExpired},
		{"Invalid code entered", CategoryInvalid, SeverityLow, CondInvalidCode},
		{"code mismatch", CategoryInvalid, SeverityLow, CondInvalidCode},
		{"rate limit exceeded for number", CategoryRateLimited, SeverityHigh, CondRateLimited},
		{"too many requests", CategoryRateLimited, SeverityHigh, CondRateLimited},
		{"connection refused by gateway", CategoryNetwork, SeverityHigh, CondNetworkError},
		{"device offline", CategoryNetwork, SeverityHigh, CondNetworkError},
		{"all methods failed for session", CategoryPersistent, SeverityCritical, CondAllFailed},
		{"something inexplicable", CategoryUnknown, SeverityLow, CondUnknownError},
	}
	for _, c := range cases {
		a := Classify(c.msg, Context{})
		if a.Category != c.category {
			t.Errorf("Classify(%q).Category = %v, want %v", c.msg, a.Category, c.category)
		}
		if a.Severity != c.severity {
			t.Errorf("Classify(%q).Severity = %v, want %v", c.msg, a.Severity, c.severity)
		}
		if !a.HasCondition(c.cond) {
			t.Errorf("Classify(%q) missing condition %q (got %v)", c.msg, c.cond, a.Conditions)
		}
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	a := Classify("CODE EXPIRED", Context{})
	if a.Category != CategoryExpired {
		t.Errorf("Category = %v, want expired", a.Category)
	}
}

func TestClassify_AttemptEscalation(t *testing.T) {
	a := Classify("invalid code", Context{Attempts: 10})
	if a.Severity < SeverityMedium {
		t.Errorf("Severity = %v, want at least medium after many attempts", a.Severity)
	}
	if !a.HasCondition(CondMultipleAttempts) {
		t.Errorf("conditions = %v, want %q", a.Conditions, CondMultipleAttempts)
	}
}

func TestClassify_ElapsedEscalation(t *testing.T) {
	a := Classify("invalid code", Context{Elapsed: 6 * time.Minute})
	if a.Severity < SeverityHigh {
		t.Errorf("Severity = %v, want at least high after prolonged issue", a.Severity)
	}
	if !a.HasCondition(CondProlongedIssue) {
		t.Errorf("conditions = %v, want %q", a.Conditions, CondProlongedIssue)
	}
}

func TestClassify_EscalationNeverDowngrades(t *testing.T) {
	a := Classify("all methods failed", Context{Attempts: 10, Elapsed: 10 * time.Minute})
	if a.Severity != SeverityCritical {
		t.Errorf("Severity = %v, want critical (escalation must not downgrade)", a.Severity)
	}
}

// Monotonicity: raising attempts never lowers severity for any input.
func TestClassify_Monotonic(t *testing.T) {
	msgs := []string{
		"code expired", "invalid code", "rate limit", "network down",
		"all methods failed", "no idea",
	}
	for _, msg := range msgs {
		base := Classify(msg, Context{Attempts: 0})
		raised := Classify(msg, Context{Attempts: 10})
		if raised.Severity < base.Severity {
			t.Errorf("Classify(%q): severity dropped from %v to %v with more attempts",
				msg, base.Severity, raised.Severity)
		}
	}
}

func TestClassify_MultipleCategoriesUnionConditions(t *testing.T) {
	a := Classify("code expired and connection lost", Context{})
	if !a.HasCondition(CondCodeExpired) || !a.HasCondition(CondNetworkError) {
		t.Errorf("conditions = %v, want both code_expired and network_error", a.Conditions)
	}
	// Primary category is the first matching row.
	if a.Category != CategoryExpired {
		t.Errorf("Category = %v, want expired", a.Category)
	}
}

func TestSeverity_Ordering(t *testing.T) {
	if !(SeverityLow < SeverityMedium && SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Fatal("severity levels must be totally ordered")
	}
	if SeverityCritical.EscalateTo(SeverityMedium) != SeverityCritical {
		t.Error("EscalateTo must never downgrade")
	}
	if SeverityLow.EscalateTo(SeverityHigh) != SeverityHigh {
		t.Error("EscalateTo should raise low to high")
	}
}
