// Package rank maintains per-skill credibility standings derived from
// the ledger notice stream.
package rank

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/internal/domain/types"
)

// Ordering: credibility DESC, then subject ASC (deterministic).

// Board is a read model of subject credibility per skill. It is fed by
// the notice dispatcher and serves leaderboard queries without touching
// the ledger.
type Board struct {
	mu     sync.RWMutex
	skills map[string]map[string]uint64 // skill -> subject -> credibility
}

// NewBoard creates an empty standings board.
func NewBoard() *Board {
	return &Board{
		skills: make(map[string]map[string]uint64),
	}
}

// Name identifies the board in dispatcher logs and metrics.
func (b *Board) Name() string { return "standings" }

// Handle folds one ledger notice into the standings. Notices that do
// not move subject credibility are ignored.
func (b *Board) Handle(_ context.Context, n model.Notice) error {
	switch n.Kind {
	case model.NoticeSkillClaimed, model.NoticeSkillEndorsed, model.NoticeEndorsementSlashed:
	default:
		return nil
	}
	if n.Subject == "" || n.Skill == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(n.Skill, n.Subject, n.Credibility)
	return nil
}

// Set records a subject's credibility directly. Used to rebuild the
// board from an archived ledger snapshot on startup.
func (b *Board) Set(skill, subject string, credibility uint64) {
	if skill == "" || subject == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set(skill, subject, credibility)
}

// set stores one cell. Must be called with b.mu held.
func (b *Board) set(skill, subject string, credibility uint64) {
	subjects, ok := b.skills[skill]
	if !ok {
		subjects = make(map[string]uint64)
		b.skills[skill] = subjects
	}
	subjects[subject] = credibility
}

// TopN returns the top-n standings for a skill, best first.
func (b *Board) TopN(_ context.Context, skill string, n int) ([]types.Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	subjects := b.skills[skill]
	entries := make([]types.Entry, 0, len(subjects))
	for subject, cred := range subjects {
		entries = append(entries, types.Entry{Subject: subject, Credibility: cred})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Credibility != entries[j].Credibility {
			return entries[i].Credibility > entries[j].Credibility
		}
		return entries[i].Subject < entries[j].Subject
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Position returns the standing of one subject within a skill.
// Returns ErrNotFound if the subject has no standing there.
func (b *Board) Position(_ context.Context, skill, subject string) (types.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subjects := b.skills[skill]
	cred, ok := subjects[subject]
	if !ok {
		return types.Entry{}, ErrNotFound
	}

	rank := 1
	for other, otherCred := range subjects {
		if otherCred > cred || (otherCred == cred && other < subject) {
			rank++
		}
	}
	return types.Entry{Rank: rank, Subject: subject, Credibility: cred}, nil
}

// Count returns the number of subjects with a standing in the skill.
func (b *Board) Count(_ context.Context, skill string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.skills[skill])
}

// Skills returns every skill with at least one standing, sorted.
func (b *Board) Skills(_ context.Context) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.skills))
	for skill := range b.skills {
		out = append(out, skill)
	}
	sort.Strings(out)
	return out
}
