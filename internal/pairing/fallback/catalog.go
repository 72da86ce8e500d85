// Package fallback selects and executes recovery strategies after a channel
// or verification failure. The catalog is plain data: adding a fallback is
// adding a table row, and execution dispatches on the action tag.
package fallback

import "pairing-control-plane/internal/pairing/failure"

// Tier orders fallbacks by the human involvement they need.
type Tier string

const (
	TierAutomatic Tier = "automatic"
	TierManual    Tier = "manual"
	TierEmergency Tier = "emergency"
)

// Action dispatches a descriptor to its executor routine.
type Action string

const (
	ActionRotateChannel  Action = "rotate_channel"
	ActionRegenerateCode Action = "regenerate_code"
	ActionRefreshSession Action = "refresh_session"
	ActionMintBackup     Action = "mint_backup"
	ActionAlternateAuth  Action = "alternate_auth"
	ActionDeviceGuidance Action = "device_guidance"
	ActionOpenTicket     Action = "open_ticket"
	ActionNewSession     Action = "new_session"
	ActionDelayedRetry   Action = "delayed_retry"
)

// Descriptor is one static catalog entry. Automatic and emergency descriptors
// match on Conditions (any overlap qualifies); manual descriptors gate on
// Requires via the capability checker. Priority is globally comparable across
// tiers; lower wins.
type Descriptor struct {
	ID         string
	Tier       Tier
	Priority   int
	Enabled    bool
	Conditions []string
	Requires   []string
	Action     Action
}

// MatchesConditions reports whether any descriptor condition appears in the
// analysis conditions.
func (d *Descriptor) MatchesConditions(a *failure.Analysis) bool {
	for _, c := range d.Conditions {
		if a.HasCondition(c) {
			return true
		}
	}
	return false
}

// DefaultCatalog returns the built-in three-tier strategy catalog.
func DefaultCatalog() []Descriptor {
	return []Descriptor{
		{
			ID: "rotate_channel", Tier: TierAutomatic, Priority: 10, Enabled: true,
			Conditions: []string{failure.CondCodeExpired, failure.CondNetworkError, failure.CondUnknownError},
			Action:     ActionRotateChannel,
		},
		{
			ID: "regenerate_code", Tier: TierAutomatic, Priority: 20, Enabled: true,
			Conditions: []string{failure.CondCodeExpired, failure.CondInvalidCode, failure.CondMultipleAttempts},
			Action:     ActionRegenerateCode,
		},
		{
			ID: "refresh_session", Tier: TierAutomatic, Priority: 30, Enabled: true,
			Conditions: []string{failure.CondNetworkError, failure.CondProlongedIssue},
			Action:     ActionRefreshSession,
		},
		{
			ID: "backup_code", Tier: TierManual, Priority: 40, Enabled: true,
			Requires: []string{"account_active"},
			Action:   ActionMintBackup,
		},
		{
			ID: "alternate_auth", Tier: TierManual, Priority: 50, Enabled: true,
			Requires: []string{"email_on_file"},
			Action:   ActionAlternateAuth,
		},
		{
			ID: "device_switch", Tier: TierManual, Priority: 60, Enabled: true,
			Requires: []string{"secondary_device"},
			Action:   ActionDeviceGuidance,
		},
		{
			ID: "support_ticket", Tier: TierEmergency, Priority: 70, Enabled: true,
			Conditions: []string{failure.CondAllFailed, failure.CondProlongedIssue},
			Action:     ActionOpenTicket,
		},
		{
			ID: "new_session", Tier: TierEmergency, Priority: 80, Enabled: true,
			Conditions: []string{failure.CondAllFailed, failure.CondRateLimited, failure.CondUnknownError},
			Action:     ActionNewSession,
		},
		{
			ID: "delayed_retry", Tier: TierEmergency, Priority: 90, Enabled: true,
			Conditions: []string{failure.CondRateLimited, failure.CondMultipleAttempts, failure.CondProlongedIssue},
			Action:     ActionDelayedRetry,
		},
	}
}
