// Package ledger implements the stake-backed skill endorsement engine:
// participants claim skills, others back those claims with escrowed
// stake, credibility accrues through a bounded gain formula, and the
// designated authority can slash bad endorsements, forfeiting their
// stake and part of both parties' credibility.
//
// Every public operation is one indivisible transaction: it either
// completes fully, including the external value transfer, or leaves no
// trace. A single lock serializes all operations.
package ledger

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/internal/domain/scoring"
	"github.com/okian/vouch/pkg/logger"
)

// Default policy constants.
const (
	defaultMinStake        = 100
	defaultMinEndorserCred = 10
	defaultSlashPenalty    = 2

	// initialCredibility seeds a freshly claimed profile.
	initialCredibility = 1

	// standingPerEndorsement is the flat standing credit an endorser
	// earns for each endorsement given, independent of the gain formula.
	standingPerEndorsement = 1
)

// Treasury moves stake value on the ledger's behalf. Collect escrows an
// endorser's stake; Release pays escrowed stake out on slash. Both must
// reject immediately on failure, never block indefinitely.
type Treasury interface {
	Collect(ctx context.Context, from string, amount uint64) error
	Release(ctx context.Context, to string, amount uint64) error
}

// Notifier receives notices after a ledger change commits. Delivery is
// best-effort; a false return means the notice was dropped.
type Notifier interface {
	Publish(ctx context.Context, n model.Notice) bool
}

// key addresses one (account, skill) cell of the ledger state.
type key struct {
	account string
	skill   string
}

// EndorseReceipt reports the outcome of an accepted endorsement.
type EndorseReceipt struct {
	Index       uint64 // position in the subject's endorsement sequence
	Gain        uint64 // credibility awarded to the subject
	Credibility uint64 // subject credibility after the gain
}

// SlashReceipt reports the outcome of a slash.
type SlashReceipt struct {
	Endorser    string // whose stake was forfeited
	Forfeited   uint64 // stake released to the authority
	Credibility uint64 // subject credibility after the penalty
	Standing    uint64 // endorser standing after the penalty
}

// Stats reports coarse ledger counters for gauges and diagnostics.
type Stats struct {
	Profiles           int
	ActiveEndorsements int
	TotalEndorsements  int
}

// Ledger owns all profile, endorsement, aggregate-stake, and standing
// state for every (account, skill) pair.
type Ledger struct {
	mu deadlock.RWMutex

	treasury Treasury
	notify   Notifier
	clk      clock.Clock
	calc     scoring.Calculator
	log      logger.Logger

	minStake        uint64
	minEndorserCred uint64
	slashPenalty    uint64

	authority string
	paused    bool

	profiles     map[key]*model.SkillProfile
	endorsements map[key][]model.Endorsement
	aggregate    map[key]uint64
	standings    map[key]uint64

	activeCount int
	totalCount  int
}

// New creates a ledger governed by the given authority, moving stake
// through the given treasury.
func New(authority string, treasury Treasury, opts ...Option) *Ledger {
	l := &Ledger{
		treasury:        treasury,
		clk:             clock.New(),
		calc:            scoring.NewBoundedCalculator(),
		log:             logger.Get().Named("ledger"),
		minStake:        defaultMinStake,
		minEndorserCred: defaultMinEndorserCred,
		slashPenalty:    defaultSlashPenalty,
		authority:       authority,
		profiles:        make(map[key]*model.SkillProfile),
		endorsements:    make(map[key][]model.Endorsement),
		aggregate:       make(map[key]uint64),
		standings:       make(map[key]uint64),
	}

	// Apply all options
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Claim registers the caller's claim to a skill, seeding the profile
// with the initial credibility.
func (l *Ledger) Claim(ctx context.Context, subject, skill string) (model.SkillProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return model.SkillProfile{}, ErrPaused
	}
	if skill == "" {
		return model.SkillProfile{}, ErrInvalidSkill
	}
	if subject == "" {
		return model.SkillProfile{}, ErrInvalidSubject
	}

	k := key{subject, skill}
	if _, ok := l.profiles[k]; ok {
		return model.SkillProfile{}, ErrAlreadyClaimed
	}

	now := l.clk.Now()
	p := &model.SkillProfile{
		Claimed:     true,
		Credibility: initialCredibility,
		LastUpdated: now,
	}
	l.profiles[k] = p

	l.publish(ctx, model.Notice{
		Kind:        model.NoticeSkillClaimed,
		Subject:     subject,
		Skill:       skill,
		Credibility: p.Credibility,
		TS:          now,
	})

	l.log.Debug(ctx, "skill claimed",
		logger.String("subject", subject),
		logger.String("skill", skill),
	)
	return *p, nil
}

// Endorse backs the subject's claimed skill with the endorser's stake.
// The stake is escrowed through the treasury before any state changes;
// the subject's credibility then grows by the calculator's gain, the
// endorser's standing by a flat credit, and the aggregate stake by the
// full amount.
func (l *Ledger) Endorse(ctx context.Context, endorser, subject, skill string, stake uint64) (EndorseReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Preconditions in order; the first failure wins and nothing mutates.
	if l.paused {
		return EndorseReceipt{}, ErrPaused
	}
	if subject == "" {
		return EndorseReceipt{}, ErrInvalidSubject
	}
	if endorser == subject {
		return EndorseReceipt{}, ErrSelfEndorsement
	}
	if stake < l.minStake {
		return EndorseReceipt{}, fmt.Errorf("%w: %d < %d", ErrInsufficientStake, stake, l.minStake)
	}

	sk := key{subject, skill}
	sp, ok := l.profiles[sk]
	if !ok || !sp.Claimed {
		return EndorseReceipt{}, ErrSkillNotClaimed
	}

	ek := key{endorser, skill}
	ep, ok := l.profiles[ek]
	if !ok || !ep.Claimed {
		return EndorseReceipt{}, ErrMustClaimFirst
	}
	if ep.Credibility < l.minEndorserCred {
		return EndorseReceipt{}, fmt.Errorf("%w: %d < %d", ErrInsufficientCredibility, ep.Credibility, l.minEndorserCred)
	}

	// Escrow the stake while still holding the lock: the transfer is
	// part of the transaction, and a rejection leaves the ledger
	// untouched.
	if err := l.treasury.Collect(ctx, endorser, stake); err != nil {
		return EndorseReceipt{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	now := l.clk.Now()
	gain := l.calc.Gain(ep.Credibility, stake)

	l.endorsements[sk] = append(l.endorsements[sk], model.Endorsement{
		Endorser:  endorser,
		Stake:     stake,
		Active:    true,
		Timestamp: now,
	})
	index := uint64(len(l.endorsements[sk]) - 1)

	sp.Credibility += gain
	sp.EndorsementsReceived++
	sp.LastUpdated = now
	l.standings[ek] += standingPerEndorsement
	l.aggregate[sk] += stake
	l.activeCount++
	l.totalCount++

	l.publish(ctx, model.Notice{
		Kind:        model.NoticeSkillEndorsed,
		Subject:     subject,
		Skill:       skill,
		Endorser:    endorser,
		Index:       index,
		Stake:       stake,
		Gain:        gain,
		Credibility: sp.Credibility,
		TS:          now,
	})

	l.log.Debug(ctx, "skill endorsed",
		logger.String("subject", subject),
		logger.String("skill", skill),
		logger.String("endorser", endorser),
		logger.Uint64("stake", stake),
		logger.Uint64("gain", gain),
	)
	return EndorseReceipt{Index: index, Gain: gain, Credibility: sp.Credibility}, nil
}

// Slash deactivates one endorsement, applies the symmetric credibility
// penalty to subject and endorser, removes the stake from the active
// aggregate, and releases it to the authority. Only the authority may
// slash; a rejected release rolls the whole operation back.
func (l *Ledger) Slash(ctx context.Context, caller, subject, skill string, index uint64) (SlashReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.authority {
		return SlashReceipt{}, ErrNotAuthorized
	}

	sk := key{subject, skill}
	seq := l.endorsements[sk]
	if index >= uint64(len(seq)) {
		return SlashReceipt{}, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(seq))
	}

	e := seq[index]
	if !e.Active {
		return SlashReceipt{}, ErrAlreadySlashed
	}

	// Stage every new value, then run the release. Nothing lands until
	// the transfer succeeds, so rollback on failure is the no-op.
	sp := l.profiles[sk]
	ek := key{e.Endorser, skill}
	newCredibility := floorSub(sp.Credibility, l.slashPenalty)
	newStanding := floorSub(l.standings[ek], l.slashPenalty)
	newAggregate := floorSub(l.aggregate[sk], e.Stake)

	if err := l.treasury.Release(ctx, l.authority, e.Stake); err != nil {
		return SlashReceipt{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	seq[index].Active = false
	sp.Credibility = newCredibility
	l.standings[ek] = newStanding
	l.aggregate[sk] = newAggregate
	l.activeCount--

	l.publish(ctx, model.Notice{
		Kind:        model.NoticeEndorsementSlashed,
		Subject:     subject,
		Skill:       skill,
		Endorser:    e.Endorser,
		Authority:   l.authority,
		Index:       index,
		Stake:       e.Stake,
		Credibility: newCredibility,
		TS:          l.clk.Now(),
	})

	l.log.Info(ctx, "endorsement slashed",
		logger.String("subject", subject),
		logger.String("skill", skill),
		logger.String("endorser", e.Endorser),
		logger.Uint64("index", index),
		logger.Uint64("forfeited", e.Stake),
	)
	return SlashReceipt{
		Endorser:    e.Endorser,
		Forfeited:   e.Stake,
		Credibility: newCredibility,
		Standing:    newStanding,
	}, nil
}

// publish hands a notice to the notifier, if any. Must be called with
// l.mu held so notices leave in commit order.
func (l *Ledger) publish(ctx context.Context, n model.Notice) {
	if l.notify == nil {
		return
	}
	n.ID = uuid.NewString()
	if !l.notify.Publish(ctx, n) {
		l.log.Debug(ctx, "notice dropped",
			logger.String("kind", string(n.Kind)),
			logger.String("subject", n.Subject),
		)
	}
}

// floorSub subtracts b from a, flooring at zero instead of wrapping.
func floorSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
