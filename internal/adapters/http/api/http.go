// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/vouch/internal/domain/ledger"
	"github.com/okian/vouch/internal/domain/model"
	"github.com/okian/vouch/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Mutations. The caller identity comes from the auth middleware.
	Claim(ctx context.Context, subject, skill string) (model.SkillProfile, error)
	Endorse(ctx context.Context, endorser, subject, skill string, stake uint64, requestID string) (ledger.EndorseReceipt, bool, error)
	Slash(ctx context.Context, caller, subject, skill string, index uint64) (ledger.SlashReceipt, error)
	SetAuthority(ctx context.Context, caller, next string) error
	SetPaused(ctx context.Context, caller string, paused bool) error
	Faucet(ctx context.Context, account string, amount uint64) (uint64, error)

	// Read operations expose ledger and standings data.
	Profile(subject, skill string) (model.SkillProfile, bool)
	EndorsementAt(subject, skill string, index uint64) (model.Endorsement, error)
	ActiveEndorsements(subject, skill string) uint64
	TotalEndorsements(subject, skill string) uint64
	AggregateStake(subject, skill string) uint64
	Standing(endorser, skill string) uint64
	Authority() string
	Paused() bool
	EscrowBalance(ctx context.Context) uint64
	Balance(ctx context.Context, account string) uint64
	TopN(ctx context.Context, skill string, n int) ([]Entry, error)
	Position(ctx context.Context, skill, subject string) (Entry, error)
	RecentNotices(ctx context.Context, n int) ([]model.Notice, error)
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	auth *Authenticator

	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	claimsHandler       *ClaimsHandler
	endorsementsHandler *EndorsementsHandler
	slashesHandler      *SlashesHandler
	profilesHandler     *ProfilesHandler
	standingsHandler    *StandingsHandler
	skillsHandler       *SkillsHandler
	escrowHandler       *EscrowHandler
	faucetHandler       *FaucetHandler
	adminHandler        *AdminHandler
	noticesHandler      *NoticesHandler
}

// NewServer creates a new API server with all handlers. maxLimit bounds
// leaderboard and notice page sizes.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *Authenticator, maxLimit int) *Server {
	return &Server{
		auth:                auth,
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		claimsHandler:       NewClaimsHandler(deps),
		endorsementsHandler: NewEndorsementsHandler(deps),
		slashesHandler:      NewSlashesHandler(deps),
		profilesHandler:     NewProfilesHandler(deps),
		standingsHandler:    NewStandingsHandler(deps),
		skillsHandler:       NewSkillsHandler(deps, maxLimit),
		escrowHandler:       NewEscrowHandler(deps),
		faucetHandler:       NewFaucetHandler(deps),
		adminHandler:        NewAdminHandler(deps),
		noticesHandler:      NewNoticesHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux. Mutating routes and the
// caller-scoped balance read sit behind the bearer-token middleware;
// everything else is public.
func (s *Server) Register(mux *http.ServeMux) {
	authed := s.auth.Require

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/claims", MetricsMiddleware(authed(s.claimsHandler.HandleClaim), "claims"))
	mux.HandleFunc("/endorsements", MetricsMiddleware(authed(s.endorsementsHandler.HandleEndorse), "endorsements"))
	mux.HandleFunc("/slashes", MetricsMiddleware(authed(s.slashesHandler.HandleSlash), "slashes"))
	mux.HandleFunc("/faucet", MetricsMiddleware(authed(s.faucetHandler.HandleFaucet), "faucet"))
	mux.HandleFunc("/balance", MetricsMiddleware(authed(s.escrowHandler.HandleBalance), "balance"))
	mux.HandleFunc("/admin/authority", MetricsMiddleware(authed(s.adminHandler.HandleAuthority), "admin_authority"))
	mux.HandleFunc("/admin/pause", MetricsMiddleware(authed(s.adminHandler.HandlePause), "admin_pause"))

	mux.HandleFunc("/profiles/", MetricsMiddleware(s.profilesHandler.HandleGet, "profiles"))
	mux.HandleFunc("/standings/", MetricsMiddleware(s.standingsHandler.HandleGet, "standings"))
	mux.HandleFunc("/skills/", MetricsMiddleware(s.skillsHandler.HandleGet, "skills"))
	mux.HandleFunc("/escrow", MetricsMiddleware(s.escrowHandler.HandleEscrow, "escrow"))
	mux.HandleFunc("/notices", MetricsMiddleware(s.noticesHandler.HandleGet, "notices"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
