// Package service assembles the endorsement ledger with its
// collaborators: the escrow vault, the notice feed and dispatcher pool,
// the standings board, the replay guard, and the durable archive. It is
// the single dependency the HTTP layer talks to.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/okian/vouch/internal/adapters/bank"
	"github.com/okian/vouch/internal/adapters/notify/dispatch"
	"github.com/okian/vouch/internal/adapters/notify/feed"
	"github.com/okian/vouch/internal/adapters/rank"
	"github.com/okian/vouch/internal/adapters/repository"
	"github.com/okian/vouch/internal/domain/ledger"
	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/internal/domain/replay"
	"github.com/okian/vouch/internal/domain/scoring"
	"github.com/okian/vouch/internal/domain/types"
	"github.com/okian/vouch/pkg/logger"
	"github.com/okian/vouch/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultAuthority        = "authority"
	defaultMinStake         = 100
	defaultMinEndorserCred  = 10
	defaultMaxGain          = 5
	defaultSlashPenalty     = 2
	defaultFaucetAmount     = 10_000
	defaultFaucetMax        = 1_000_000
	defaultFeedCapacity     = 10_000
	defaultDispatcherCount  = 4
	defaultReplayGuardSize  = 50_000
	defaultSnapshotInterval = 30 * time.Second

	archiveFileName = "vouch.db"
)

// Service owns the ledger and every adapter around it. All public
// operations delegate to the ledger, whose internal lock serializes
// them into indivisible transactions.
type Service struct {
	mu sync.RWMutex

	// Core components
	ledger  *ledger.Ledger
	vault   bank.Vault
	noticeQ feed.Feed
	pool    *dispatch.Pool
	board   *rank.Board
	guard   replay.Guard
	archive repository.Archive

	// Configuration
	authority        string
	minStake         uint64
	minEndorserCred  uint64
	maxGain          uint64
	slashPenalty     uint64
	faucetEnabled    bool
	faucetAmount     uint64
	faucetMaxAmount  uint64
	feedCapacity     int
	dispatcherCount  int
	replayGuardSize  int
	snapshotInterval time.Duration
	dataDir          string
	clk              clock.Clock

	// State
	started bool
	stopCh  chan struct{}
	snapWG  sync.WaitGroup

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAuthority sets the bootstrap governance identity. An archived
// snapshot overrides it on load, so authority transfers survive
// restarts.
func WithAuthority(authority string) Option {
	return func(s *Service) {
		if authority != "" {
			s.authority = authority
		}
	}
}

// WithMinStake sets the minimum endorsement stake, which doubles as the
// stake unit of the gain formula.
func WithMinStake(amount uint64) Option {
	return func(s *Service) {
		if amount > 0 {
			s.minStake = amount
		}
	}
}

// WithMinEndorserCredibility sets the credibility gate for endorsing.
func WithMinEndorserCredibility(threshold uint64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.minEndorserCred = threshold
		}
	}
}

// WithMaxGain caps the credibility gain of a single endorsement.
func WithMaxGain(maxGain uint64) Option {
	return func(s *Service) {
		if maxGain > 0 {
			s.maxGain = maxGain
		}
	}
}

// WithSlashPenalty sets the credibility penalty applied on slash.
func WithSlashPenalty(penalty uint64) Option {
	return func(s *Service) {
		if penalty > 0 {
			s.slashPenalty = penalty
		}
	}
}

// WithFaucet configures the dev faucet.
func WithFaucet(enabled bool, amount, maxAmount uint64) Option {
	return func(s *Service) {
		s.faucetEnabled = enabled
		if amount > 0 {
			s.faucetAmount = amount
		}
		if maxAmount > 0 {
			s.faucetMaxAmount = maxAmount
		}
	}
}

// WithFeedCapacity bounds the in-memory notice feed.
func WithFeedCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.feedCapacity = capacity
		}
	}
}

// WithDispatcherCount sets the number of notice dispatchers.
func WithDispatcherCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.dispatcherCount = count
		}
	}
}

// WithReplayGuardSize bounds the request-id replay guard.
func WithReplayGuardSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.replayGuardSize = size
		}
	}
}

// WithSnapshotInterval sets the period between archived snapshots.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.snapshotInterval = interval
		}
	}
}

// WithDataDir sets the directory holding the archive database. An empty
// directory disables persistence entirely.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		s.dataDir = dir
	}
}

// WithVault injects a vault, replacing the in-memory default.
func WithVault(v bank.Vault) Option {
	return func(s *Service) {
		if v != nil {
			s.vault = v
		}
	}
}

// WithArchive injects an archive, overriding the data directory.
func WithArchive(a repository.Archive) Option {
	return func(s *Service) {
		if a != nil {
			s.archive = a
		}
	}
}

// WithClock sets the clock driving ledger timestamps.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		authority:        defaultAuthority,
		minStake:         defaultMinStake,
		minEndorserCred:  defaultMinEndorserCred,
		maxGain:          defaultMaxGain,
		slashPenalty:     defaultSlashPenalty,
		faucetEnabled:    true,
		faucetAmount:     defaultFaucetAmount,
		faucetMaxAmount:  defaultFaucetMax,
		feedCapacity:     defaultFeedCapacity,
		dispatcherCount:  defaultDispatcherCount,
		replayGuardSize:  defaultReplayGuardSize,
		snapshotInterval: defaultSnapshotInterval,
		clk:              clock.New(),
		stopCh:           make(chan struct{}),
		logger:           nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.stopCh = make(chan struct{})

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting endorsement ledger service...")

	// Initialize components
	if s.vault == nil {
		s.vault = bank.NewInMemoryVault()
	}
	if s.archive == nil && s.dataDir != "" {
		arch, err := repository.Open(filepath.Join(s.dataDir, archiveFileName))
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		s.archive = arch
	}

	s.guard = replay.NewInMemoryGuard(
		replay.WithMaxSize(s.replayGuardSize),
	)
	s.board = rank.NewBoard()
	s.noticeQ = feed.NewInMemoryFeed(
		feed.WithCapacity(s.feedCapacity),
		feed.WithBufferSize(s.feedCapacity),
	)

	calc := scoring.NewBoundedCalculator(
		scoring.WithMinStakeUnit(s.minStake),
		scoring.WithMaxGain(s.maxGain),
	)
	s.ledger = ledger.New(s.authority, s.vault,
		ledger.WithCalculator(calc),
		ledger.WithClock(s.clk),
		ledger.WithNotifier(s.noticeQ),
		ledger.WithMinStake(s.minStake),
		ledger.WithMinEndorserCredibility(s.minEndorserCred),
		ledger.WithSlashPenalty(s.slashPenalty),
	)

	if err := s.restore(ctx); err != nil {
		return err
	}

	// Every committed notice flows to the standings board, the metrics
	// counters, the structured log, and (when configured) the journal.
	sinks := []dispatch.Sink{s.board, dispatch.NewMetricsSink(), dispatch.NewLogSink()}
	if s.archive != nil {
		sinks = append(sinks, dispatch.NewJournalSink(s.archive))
	}
	s.pool = dispatch.NewPool(s.dispatcherCount, s.noticeQ, sinks...)
	s.pool.Start(ctx)

	if s.archive != nil {
		s.snapWG.Add(1)
		go s.snapshotLoop()
	}

	s.started = true
	s.logger.Info(ctx, "endorsement ledger service started",
		logger.String("authority", s.ledger.Authority()),
		logger.Uint64("minStake", s.minStake),
		logger.Uint64("minEndorserCredibility", s.minEndorserCred),
		logger.Int("dispatchers", s.dispatcherCount),
		logger.Bool("persistent", s.archive != nil),
	)

	return nil
}

// restore loads the archived snapshot, if any, into the ledger and
// rebuilds the standings board from it.
func (s *Service) restore(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}

	snap, err := s.archive.LoadState(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoState) {
			s.logger.Info(ctx, "no archived state; starting fresh")
			return nil
		}
		return fmt.Errorf("load archived state: %w", err)
	}

	s.ledger.Restore(snap)
	for _, p := range snap.Profiles {
		s.board.Set(p.Skill, p.Account, p.Profile.Credibility)
	}

	s.logger.Info(ctx, "ledger state restored from archive",
		logger.Int("profiles", len(snap.Profiles)),
		logger.String("authority", snap.Authority),
		logger.Bool("paused", snap.Paused),
	)
	return nil
}

// snapshotLoop periodically archives the ledger state until Stop.
func (s *Service) snapshotLoop() {
	defer s.snapWG.Done()

	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()
			if err := s.archive.SaveState(ctx, s.ledger.Snapshot()); err != nil {
				s.logger.Error(ctx, "periodic snapshot failed", logger.Error(err))
			}
		}
	}
}

// Stop gracefully shuts down the service, archiving a final snapshot.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping endorsement ledger service...")

	// Signal the snapshot loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	s.snapWG.Wait()

	// Close the feed and let the dispatchers drain it so the journal
	// captures every published notice before the archive closes.
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	if s.archive != nil {
		if err := s.archive.SaveState(ctx, s.ledger.Snapshot()); err != nil {
			s.logger.Error(ctx, "final snapshot failed", logger.Error(err))
		}
		if err := s.archive.Close(); err != nil {
			s.logger.Error(ctx, "archive close failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "endorsement ledger service stopped")
}

// Claim registers the caller's claim to a skill.
func (s *Service) Claim(ctx context.Context, subject, skill string) (model.SkillProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.SkillProfile{}, ErrNotStarted
	}

	profile, err := s.ledger.Claim(ctx, subject, skill)
	if err != nil {
		metrics.RecordRejection("claim", reason(err))
		return model.SkillProfile{}, err
	}
	return profile, nil
}

// Endorse backs a subject's skill with the endorser's stake. A non-empty
// requestID deduplicates client retries: a replayed ID reports
// duplicate=true without touching the ledger, and a failed operation
// un-records its ID so the client may retry it.
func (s *Service) Endorse(ctx context.Context, endorser, subject, skill string, stake uint64, requestID string) (ledger.EndorseReceipt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ledger.EndorseReceipt{}, false, ErrNotStarted
	}

	if requestID != "" && s.guard.SeenAndRecord(ctx, requestID) {
		metrics.RecordEndorsementReplayed()
		return ledger.EndorseReceipt{}, true, nil
	}

	receipt, err := s.ledger.Endorse(ctx, endorser, subject, skill, stake)
	if err != nil {
		if requestID != "" {
			s.guard.Unrecord(ctx, requestID)
		}
		metrics.RecordRejection("endorse", reason(err))
		if errors.Is(err, ledger.ErrTransferFailed) {
			metrics.RecordTransferFailure()
		}
		return ledger.EndorseReceipt{}, false, err
	}
	return receipt, false, nil
}

// Slash forfeits one endorsement on behalf of the authority.
func (s *Service) Slash(ctx context.Context, caller, subject, skill string, index uint64) (ledger.SlashReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ledger.SlashReceipt{}, ErrNotStarted
	}

	receipt, err := s.ledger.Slash(ctx, caller, subject, skill, index)
	if err != nil {
		metrics.RecordRejection("slash", reason(err))
		if errors.Is(err, ledger.ErrTransferFailed) {
			metrics.RecordTransferFailure()
		}
		return ledger.SlashReceipt{}, err
	}
	return receipt, nil
}

// SetAuthority transfers governance to a new identity.
func (s *Service) SetAuthority(ctx context.Context, caller, next string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}

	if err := s.ledger.SetAuthority(ctx, caller, next); err != nil {
		metrics.RecordRejection("set_authority", reason(err))
		return err
	}
	return nil
}

// SetPaused toggles the gate on new claims and endorsements.
func (s *Service) SetPaused(ctx context.Context, caller string, paused bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}

	if err := s.ledger.SetPaused(ctx, caller, paused); err != nil {
		metrics.RecordRejection("set_paused", reason(err))
		return err
	}
	return nil
}

// Faucet credits the account with dev funds and returns the granted
// amount. A zero request grants the configured default.
func (s *Service) Faucet(ctx context.Context, account string, amount uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return 0, ErrNotStarted
	}
	if !s.faucetEnabled {
		return 0, ErrFaucetDisabled
	}
	if amount == 0 {
		amount = s.faucetAmount
	}
	if amount > s.faucetMaxAmount {
		return 0, fmt.Errorf("%w: %d > %d", ErrFaucetLimit, amount, s.faucetMaxAmount)
	}

	if err := s.vault.Deposit(ctx, account, amount); err != nil {
		return 0, err
	}
	metrics.RecordFaucetGrant()
	return amount, nil
}

// Profile returns the subject's profile for a skill.
func (s *Service) Profile(subject, skill string) (model.SkillProfile, bool) {
	if l := s.ledgerRef(); l != nil {
		return l.Profile(subject, skill)
	}
	return model.SkillProfile{}, false
}

// Credibility returns the subject's credibility in a skill.
func (s *Service) Credibility(subject, skill string) uint64 {
	if l := s.ledgerRef(); l != nil {
		return l.Credibility(subject, skill)
	}
	return 0
}

// ActiveEndorsements counts the subject's unslashed endorsements.
func (s *Service) ActiveEndorsements(subject, skill string) uint64 {
	if l := s.ledgerRef(); l != nil {
		return l.ActiveEndorsements(subject, skill)
	}
	return 0
}

// TotalEndorsements counts every endorsement ever recorded.
func (s *Service) TotalEndorsements(subject, skill string) uint64 {
	if l := s.ledgerRef(); l != nil {
		return l.TotalEndorsements(subject, skill)
	}
	return 0
}

// EndorsementAt returns one endorsement by its sequence position.
func (s *Service) EndorsementAt(subject, skill string, index uint64) (model.Endorsement, error) {
	if l := s.ledgerRef(); l != nil {
		return l.EndorsementAt(subject, skill, index)
	}
	return model.Endorsement{}, ErrNotStarted
}

// AggregateStake returns the total active stake behind a skill.
func (s *Service) AggregateStake(subject, skill string) uint64 {
	if l := s.ledgerRef(); l != nil {
		return l.AggregateStake(subject, skill)
	}
	return 0
}

// Standing returns the endorser's standing in a skill.
func (s *Service) Standing(endorser, skill string) uint64 {
	if l := s.ledgerRef(); l != nil {
		return l.Standing(endorser, skill)
	}
	return 0
}

// Authority returns the current governance identity.
func (s *Service) Authority() string {
	if l := s.ledgerRef(); l != nil {
		return l.Authority()
	}
	return s.authority
}

// Paused reports whether claims and endorsements are gated.
func (s *Service) Paused() bool {
	if l := s.ledgerRef(); l != nil {
		return l.Paused()
	}
	return false
}

// EscrowBalance returns the stake currently held in escrow.
func (s *Service) EscrowBalance(ctx context.Context) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vault == nil {
		return 0
	}
	return s.vault.EscrowBalance(ctx)
}

// Balance returns the spendable balance of an account.
func (s *Service) Balance(ctx context.Context, account string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vault == nil {
		return 0
	}
	return s.vault.Balance(ctx, account)
}

// TopN returns up to n subjects of a skill ranked by credibility.
func (s *Service) TopN(ctx context.Context, skill string, n int) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.board.TopN(ctx, skill, n)
}

// Position returns one subject's rank within a skill.
func (s *Service) Position(ctx context.Context, skill, subject string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Entry{}, ErrNotStarted
	}
	return s.board.Position(ctx, skill, subject)
}

// RecentNotices returns up to n journaled notices, newest first. An
// ephemeral service (no archive) has no journal and returns none.
func (s *Service) RecentNotices(ctx context.Context, n int) ([]model.Notice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if s.archive == nil {
		return []model.Notice{}, nil
	}
	return s.archive.Recent(ctx, n)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"minStake":        s.minStake,
		"minEndorserCred": s.minEndorserCred,
		"maxGain":         s.maxGain,
		"slashPenalty":    s.slashPenalty,
		"faucetEnabled":   s.faucetEnabled,
	}

	if s.started {
		ls := s.ledger.Stats()
		escrow := s.vault.EscrowBalance(ctx)

		stats["authority"] = s.ledger.Authority()
		stats["paused"] = s.ledger.Paused()
		stats["profiles"] = ls.Profiles
		stats["activeEndorsements"] = ls.ActiveEndorsements
		stats["totalEndorsements"] = ls.TotalEndorsements
		stats["escrowBalance"] = escrow
		stats["feedLength"] = s.noticeQ.Len(ctx)
		stats["replayGuardSize"] = s.guard.Size()
		stats["dispatcherCount"] = s.dispatcherCount
		stats["persistent"] = s.archive != nil

		// Update metrics
		metrics.UpdateProfileCount(ls.Profiles)
		metrics.UpdateActiveEndorsements(ls.ActiveEndorsements)
		metrics.UpdateEscrowBalance(escrow)
		metrics.UpdatePaused(s.ledger.Paused())
	}

	return stats
}

// ledgerRef returns the ledger when the service has started.
func (s *Service) ledgerRef() *ledger.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil
	}
	return s.ledger
}

// reason labels a rejection for the metrics counter.
func reason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrPaused):
		return "paused"
	case errors.Is(err, ledger.ErrInvalidSkill):
		return "invalid_skill"
	case errors.Is(err, ledger.ErrInvalidSubject):
		return "invalid_subject"
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ledger.ErrSelfEndorsement):
		return "self_endorsement"
	case errors.Is(err, ledger.ErrInsufficientStake):
		return "insufficient_stake"
	case errors.Is(err, ledger.ErrSkillNotClaimed):
		return "skill_not_claimed"
	case errors.Is(err, ledger.ErrMustClaimFirst):
		return "must_claim_first"
	case errors.Is(err, ledger.ErrInsufficientCredibility):
		return "insufficient_credibility"
	case errors.Is(err, ledger.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ledger.ErrInvalidIndex):
		return "invalid_index"
	case errors.Is(err, ledger.ErrAlreadySlashed):
		return "already_slashed"
	case errors.Is(err, ledger.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "other"
	}
}
