package model

import "time"

// NoticeKind identifies the ledger state change a Notice describes.
type NoticeKind string

// Notice kinds emitted by the ledger.
const (
	NoticeSkillClaimed       NoticeKind = "skill_claimed"
	NoticeSkillEndorsed      NoticeKind = "skill_endorsed"
	NoticeEndorsementSlashed NoticeKind = "endorsement_slashed"
	NoticeAuthorityChanged   NoticeKind = "authority_changed"
	NoticePauseChanged       NoticeKind = "pause_changed"
)

// Notice is an observational record of one committed ledger change.
// It is published after the change is applied; delivery is best-effort
// and never feeds back into ledger state. Fields beyond ID/Kind/TS are
// populated per kind.
type Notice struct {
	ID          string     `json:"id"`
	Kind        NoticeKind `json:"kind"`
	Subject     string     `json:"subject,omitempty"`
	Skill       string     `json:"skill,omitempty"`
	Endorser    string     `json:"endorser,omitempty"`
	Authority   string     `json:"authority,omitempty"`
	Index       uint64     `json:"index"`
	Stake       uint64     `json:"stake"`
	Gain        uint64     `json:"gain"`
	Credibility uint64     `json:"credibility"`
	Paused      bool       `json:"paused"`
	TS          time.Time  `json:"ts"`
}
