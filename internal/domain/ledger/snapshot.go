package ledger

import (
	"sort"

	"github.com/okian/vouch/internal/domain/model"
)

// ProfileRecord is one (account, skill) profile in a snapshot.
type ProfileRecord struct {
	Account string             `json:"account"`
	Skill   string             `json:"skill"`
	Profile model.SkillProfile `json:"profile"`
}

// SequenceRecord is one subject's endorsement sequence in a snapshot.
type SequenceRecord struct {
	Subject      string              `json:"subject"`
	Skill        string              `json:"skill"`
	Endorsements []model.Endorsement `json:"endorsements"`
}

// StandingRecord is one endorser's standing in a snapshot.
type StandingRecord struct {
	Endorser string `json:"endorser"`
	Skill    string `json:"skill"`
	Standing uint64 `json:"standing"`
}

// Snapshot is a serializable image of the full ledger state. Aggregate
// stake and the coarse counters are not stored: Restore recomputes them
// from the endorsement sequences, so a snapshot can never resurrect a
// desynchronized aggregate.
type Snapshot struct {
	Authority string           `json:"authority"`
	Paused    bool             `json:"paused"`
	Profiles  []ProfileRecord  `json:"profiles"`
	Sequences []SequenceRecord `json:"sequences"`
	Standings []StandingRecord `json:"standings"`
}

// Snapshot captures the current state. Records are sorted so equal
// states produce byte-equal serializations.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := Snapshot{
		Authority: l.authority,
		Paused:    l.paused,
		Profiles:  make([]ProfileRecord, 0, len(l.profiles)),
		Sequences: make([]SequenceRecord, 0, len(l.endorsements)),
		Standings: make([]StandingRecord, 0, len(l.standings)),
	}

	for k, p := range l.profiles {
		snap.Profiles = append(snap.Profiles, ProfileRecord{
			Account: k.account,
			Skill:   k.skill,
			Profile: *p,
		})
	}
	for k, seq := range l.endorsements {
		cp := make([]model.Endorsement, len(seq))
		copy(cp, seq)
		snap.Sequences = append(snap.Sequences, SequenceRecord{
			Subject:      k.account,
			Skill:        k.skill,
			Endorsements: cp,
		})
	}
	for k, s := range l.standings {
		if s == 0 {
			continue
		}
		snap.Standings = append(snap.Standings, StandingRecord{
			Endorser: k.account,
			Skill:    k.skill,
			Standing: s,
		})
	}

	sort.Slice(snap.Profiles, func(i, j int) bool {
		a, b := snap.Profiles[i], snap.Profiles[j]
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		return a.Skill < b.Skill
	})
	sort.Slice(snap.Sequences, func(i, j int) bool {
		a, b := snap.Sequences[i], snap.Sequences[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Skill < b.Skill
	})
	sort.Slice(snap.Standings, func(i, j int) bool {
		a, b := snap.Standings[i], snap.Standings[j]
		if a.Endorser != b.Endorser {
			return a.Endorser < b.Endorser
		}
		return a.Skill < b.Skill
	})

	return snap
}

// Restore replaces the ledger state with a snapshot's. Aggregates and
// counters are rebuilt from the endorsement sequences.
func (l *Ledger) Restore(snap Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.authority = snap.Authority
	l.paused = snap.Paused

	l.profiles = make(map[key]*model.SkillProfile, len(snap.Profiles))
	for _, r := range snap.Profiles {
		p := r.Profile
		l.profiles[key{r.Account, r.Skill}] = &p
	}

	l.endorsements = make(map[key][]model.Endorsement, len(snap.Sequences))
	l.aggregate = make(map[key]uint64, len(snap.Sequences))
	l.activeCount = 0
	l.totalCount = 0
	for _, r := range snap.Sequences {
		k := key{r.Subject, r.Skill}
		seq := make([]model.Endorsement, len(r.Endorsements))
		copy(seq, r.Endorsements)
		l.endorsements[k] = seq

		for _, e := range seq {
			l.totalCount++
			if e.Active {
				l.aggregate[k] += e.Stake
				l.activeCount++
			}
		}
	}

	l.standings = make(map[key]uint64, len(snap.Standings))
	for _, r := range snap.Standings {
		l.standings[key{r.Endorser, r.Skill}] = r.Standing
	}
}
