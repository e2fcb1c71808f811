// Package model contains domain records passed between layers.
package model

import "time"

// SkillProfile tracks one account's standing in one claimed skill.
type SkillProfile struct {
	Claimed              bool      `json:"claimed"`
	Credibility          uint64    `json:"credibility"`
	EndorsementsReceived uint64    `json:"endorsements_received"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Endorsement is one stake-backed endorsement of a subject's skill.
// Slashing clears Active; the record itself is never removed, so
// indices handed out to callers stay stable.
type Endorsement struct {
	Endorser  string    `json:"endorser"`
	Stake     uint64    `json:"stake"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}
