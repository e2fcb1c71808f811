// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/vouch/internal/domain/model"
)

// ProfileDependencies defines the interface for profile reads.
type ProfileDependencies interface {
	Profile(subject, skill string) (model.SkillProfile, bool)
	EndorsementAt(subject, skill string, index uint64) (model.Endorsement, error)
	ActiveEndorsements(subject, skill string) uint64
	TotalEndorsements(subject, skill string) uint64
	AggregateStake(subject, skill string) uint64
}

// ProfilesHandler handles profile read requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

type profileResponse struct {
	Subject              string    `json:"subject"`
	Skill                string    `json:"skill"`
	Claimed              bool      `json:"claimed"`
	Credibility          uint64    `json:"credibility"`
	EndorsementsReceived uint64    `json:"endorsements_received"`
	LastUpdated          time.Time `json:"last_updated"`
	ActiveEndorsements   uint64    `json:"active_endorsements"`
	TotalEndorsements    uint64    `json:"total_endorsements"`
	AggregateStake       uint64    `json:"aggregate_stake"`
}

type endorsementResponse struct {
	Subject   string    `json:"subject"`
	Skill     string    `json:"skill"`
	Index     uint64    `json:"index"`
	Endorser  string    `json:"endorser"`
	Stake     uint64    `json:"stake"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleGet handles GET /profiles/{subject}/{skill} and
// GET /profiles/{subject}/{skill}/endorsements/{index} requests.
func (h *ProfilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/profiles/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		h.serveProfile(w, parts[0], parts[1])
	case len(parts) == 4 && parts[2] == "endorsements" && parts[3] != "":
		index, err := strconv.ParseUint(parts[3], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		h.serveEndorsement(w, parts[0], parts[1], index)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}

func (h *ProfilesHandler) serveProfile(w http.ResponseWriter, subject, skill string) {
	const op = "api.get_profile"
	profile, ok := h.deps.Profile(subject, skill)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Subject:              subject,
		Skill:                skill,
		Claimed:              profile.Claimed,
		Credibility:          profile.Credibility,
		EndorsementsReceived: profile.EndorsementsReceived,
		LastUpdated:          profile.LastUpdated,
		ActiveEndorsements:   h.deps.ActiveEndorsements(subject, skill),
		TotalEndorsements:    h.deps.TotalEndorsements(subject, skill),
		AggregateStake:       h.deps.AggregateStake(subject, skill),
	})
}

func (h *ProfilesHandler) serveEndorsement(w http.ResponseWriter, subject, skill string, index uint64) {
	const op = "api.get_endorsement"
	e, err := h.deps.EndorsementAt(subject, skill, index)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, endorsementResponse{
		Subject:   subject,
		Skill:     skill,
		Index:     index,
		Endorser:  e.Endorser,
		Stake:     e.Stake,
		Active:    e.Active,
		Timestamp: e.Timestamp,
	})
}
