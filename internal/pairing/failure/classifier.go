// Package failure maps raw failure signals into an error category, an ordered
// severity, and the condition tags that drive fallback selection. Classify is
// a pure function; nothing here is persisted.
package failure

import (
	"strings"
	"time"
)

// Category is the coarse error type of a classified failure.
type Category string

const (
	CategoryExpired     Category = "expired"
	CategoryInvalid     Category = "invalid"
	CategoryRateLimited Category = "rate_limited"
	CategoryNetwork     Category = "network"
	CategoryPersistent  Category = "persistent"
	CategoryUnknown     Category = "unknown"
)

// Condition tags are matched against fallback descriptor conditions.
const (
	CondCodeExpired      = "code_expired"
	CondInvalidCode      = "invalid_code"
	CondRateLimited      = "rate_limited"
	CondNetworkError     = "network_error"
	CondAllFailed        = "all_failed"
	CondUnknownError     = "unknown_error"
	CondMultipleAttempts = "multiple_attempts"
	CondProlongedIssue   = "prolonged_issue"
)

// Context carries the attempt count and elapsed time that escalate severity.
type Context struct {
	Attempts int
	Elapsed  time.Duration
}

// Analysis is the ephemeral classification of one failure.
type Analysis struct {
	Category    Category
	Severity    Severity
	Conditions  []string
	Suggestions []string
}

// HasCondition reports whether the analysis carries the given condition tag.
func (a *Analysis) HasCondition(tag string) bool {
	for _, c := range a.Conditions {
		if c == tag {
			return true
		}
	}
	return false
}

// category keyword table, matched case-insensitively in order; the first
// matching row sets Category and base Severity, every matching row
// contributes its condition tag.
var categoryRows = []struct {
	category  Category
	severity  Severity
	condition string
	keywords  []string
}{
	{CategoryExpired, SeverityMedium, CondCodeExpired, []string{"expired", "timeout", "timed out", "stale"}},
	{CategoryInvalid, SeverityLow, CondInvalidCode, []string{"invalid", "wrong", "mismatch", "incorrect"}},
	{CategoryRateLimited, SeverityHigh, CondRateLimited, []string{"rate limit", "rate limited", "too many"}},
	{CategoryNetwork, SeverityHigh, CondNetworkError, []string{"connection", "network", "offline", "unreachable"}},
	{CategoryPersistent, SeverityCritical, CondAllFailed, []string{"all methods", "all channels", "persistent", "repeatedly failed"}},
}

const (
	escalateAttempts = 3
	escalateElapsed  = 5 * time.Minute
)

// Classify maps a raw failure message plus context into an Analysis. Matching
// is case-insensitive substring search. Severity is escalated, never
// downgraded, when attempts exceed 3 or the failure has dragged on past 5
// minutes; the matching escalation conditions are added.
func Classify(rawMessage string, fctx Context) *Analysis {
	msg := strings.ToLower(rawMessage)

	a := &Analysis{Category: CategoryUnknown, Severity: SeverityLow}
	for _, row := range categoryRows {
		matched := false
		for _, kw := range row.keywords {
			if strings.Contains(msg, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if a.Category == CategoryUnknown {
			a.Category = row.category
			a.Severity = row.severity
		}
		a.Conditions = append(a.Conditions, row.condition)
	}
	if a.Category == CategoryUnknown {
		a.Conditions = append(a.Conditions, CondUnknownError)
	}

	if fctx.Attempts > escalateAttempts {
		a.Severity = a.Severity.EscalateTo(SeverityMedium)
		a.Conditions = append(a.Conditions, CondMultipleAttempts)
	}
	if fctx.Elapsed > escalateElapsed {
		a.Severity = a.Severity.EscalateTo(SeverityHigh)
		a.Conditions = append(a.Conditions, CondProlongedIssue)
	}

	a.Suggestions = suggestions(a.Category)
	return a
}

func suggestions(c Category) []string {
	switch c {
	case CategoryExpired:
		return []string{"Request a fresh code", "Complete verification promptly after the code arrives"}
	case CategoryInvalid:
		return []string{"Re-enter the code exactly as shown", "Check for transposed digits"}
	case CategoryRateLimited:
		return []string{"Wait before requesting another code", "Try a different verification channel"}
	case CategoryNetwork:
		return []string{"Check the device's connection", "Retry once the network is back"}
	case CategoryPersistent:
		return []string{"Use a backup code if one was saved", "Contact support if the problem continues"}
	default:
		return []string{"Retry the last step"}
	}
}
