// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// StandingDependencies defines the interface for endorser standing reads.
type StandingDependencies interface {
	Standing(endorser, skill string) uint64
}

// StandingsHandler handles endorser standing requests.
type StandingsHandler struct {
	deps StandingDependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingDependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

type standingResponse struct {
	Endorser string `json:"endorser"`
	Skill    string `json:"skill"`
	Standing uint64 `json:"standing"`
}

// HandleGet handles GET /standings/{endorser}/{skill} requests. An
// endorser with no history reads as zero standing.
func (h *StandingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standing"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/standings/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, standingResponse{
		Endorser: parts[0],
		Skill:    parts[1],
		Standing: h.deps.Standing(parts[0], parts[1]),
	})
}
