package failure

// Severity is the ordered failure-impact classification driving fallback
// eligibility. Comparisons use the integer ordering, never string values.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// EscalateTo raises s to at least min. Escalation never downgrades.
func (s Severity) EscalateTo(min Severity) Severity {
	if s < min {
		return min
	}
	return s
}
