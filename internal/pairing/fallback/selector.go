package fallback

import (
	"context"
	"sort"

	"pairing-control-plane/internal/pairing/capability"
	"pairing-control-plane/internal/pairing/failure"
)

// Selector picks the single best fallback for a classified failure.
type Selector struct {
	catalog []Descriptor
	caps    capability.Checker
}

// NewSelector returns a selector over catalog. caps gates manual-tier
// descriptors; nil means manual prerequisites are treated as satisfied.
func NewSelector(catalog []Descriptor, caps capability.Checker) *Selector {
	if caps == nil {
		caps = capability.Static(true)
	}
	return &Selector{catalog: catalog, caps: caps}
}

// Select returns the eligible descriptor with the lowest priority number, or
// nil when nothing matches. Eligibility per tier:
//
//	automatic: conditions overlap the analysis conditions
//	manual:    severity >= high and the capability checker accepts Requires
//	emergency: severity == critical and conditions overlap
//
// Priorities are globally comparable, so the winner may come from any
// eligible tier. Deterministic for a fixed analysis and catalog.
func (s *Selector) Select(ctx context.Context, sessionID string, a *failure.Analysis) (*Descriptor, error) {
	var candidates []Descriptor
	for _, d := range s.catalog {
		if !d.Enabled {
			continue
		}
		switch d.Tier {
		case TierAutomatic:
			if d.MatchesConditions(a) {
				candidates = append(candidates, d)
			}
		case TierManual:
			if a.Severity < failure.SeverityHigh {
				continue
			}
			ok, err := s.caps.Satisfied(ctx, sessionID, d.Requires)
			if err != nil {
				return nil, err
			}
			if ok {
				candidates = append(candidates, d)
			}
		case TierEmergency:
			if a.Severity == failure.SeverityCritical && d.MatchesConditions(a) {
				candidates = append(candidates, d)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})
	out := candidates[0]
	return &out, nil
}
