package ledger

import (
	"fmt"

	"github.com/okian/vouch/internal/domain/model"
)

// Profile returns the subject's profile for a skill and whether it
// exists. The returned value is a copy.
func (l *Ledger) Profile(subject, skill string) (model.SkillProfile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.profiles[key{subject, skill}]
	if !ok {
		return model.SkillProfile{}, false
	}
	return *p, true
}

// Credibility returns the subject's credibility in a skill, zero when
// the skill is unclaimed.
func (l *Ledger) Credibility(subject, skill string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.profiles[key{subject, skill}]
	if !ok {
		return 0
	}
	return p.Credibility
}

// ActiveEndorsements counts the subject's endorsements that have not
// been slashed.
func (l *Ledger) ActiveEndorsements(subject, skill string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var n uint64
	for _, e := range l.endorsements[key{subject, skill}] {
		if e.Active {
			n++
		}
	}
	return n
}

// TotalEndorsements counts every endorsement ever recorded for the
// subject's skill, slashed ones included.
func (l *Ledger) TotalEndorsements(subject, skill string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return uint64(len(l.endorsements[key{subject, skill}]))
}

// EndorsementAt returns one endorsement of the subject's skill by its
// position in the sequence.
func (l *Ledger) EndorsementAt(subject, skill string, index uint64) (model.Endorsement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seq := l.endorsements[key{subject, skill}]
	if index >= uint64(len(seq)) {
		return model.Endorsement{}, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(seq))
	}
	return seq[index], nil
}

// AggregateStake returns the total stake backing the subject's skill
// across active endorsements only.
func (l *Ledger) AggregateStake(subject, skill string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.aggregate[key{subject, skill}]
}

// Standing returns the endorser's accumulated standing in a skill,
// earned by endorsing others.
func (l *Ledger) Standing(endorser, skill string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.standings[key{endorser, skill}]
}

// Authority returns the identity allowed to slash and administrate.
func (l *Ledger) Authority() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.authority
}

// Paused reports whether new claims and endorsements are being refused.
func (l *Ledger) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.paused
}

// Stats returns coarse counters over the whole ledger.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		Profiles:           len(l.profiles),
		ActiveEndorsements: l.activeCount,
		TotalEndorsements:  l.totalCount,
	}
}
