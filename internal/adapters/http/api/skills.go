// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// SkillDependencies defines the interface for skill standings reads.
type SkillDependencies interface {
	TopN(ctx context.Context, skill string, n int) ([]Entry, error)
	Position(ctx context.Context, skill, subject string) (Entry, error)
}

// SkillsHandler handles leaderboard and rank requests.
type SkillsHandler struct {
	deps     SkillDependencies
	maxLimit int
}

// NewSkillsHandler creates a new skills handler.
func NewSkillsHandler(deps SkillDependencies, maxLimit int) *SkillsHandler {
	return &SkillsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGet handles GET /skills/{skill}/leaderboard?limit=N and
// GET /skills/{skill}/rank/{subject} requests.
func (h *SkillsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_skill_standings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/skills/")
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] == "leaderboard":
		h.serveLeaderboard(w, r, parts[0])
	case len(parts) == 3 && parts[0] != "" && parts[1] == "rank" && parts[2] != "":
		h.serveRank(w, r, parts[0], parts[2])
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}

func (h *SkillsHandler) serveLeaderboard(w http.ResponseWriter, r *http.Request, skill string) {
	const op = "api.get_leaderboard"
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), skill, n)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *SkillsHandler) serveRank(w http.ResponseWriter, r *http.Request, skill, subject string) {
	const op = "api.get_rank"
	entry, err := h.deps.Position(r.Context(), skill, subject)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
