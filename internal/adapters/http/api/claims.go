// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/okian/vouch/internal/domain/model"
)

// ClaimDependencies defines the interface for claim operations.
type ClaimDependencies interface {
	Claim(ctx context.Context, subject, skill string) (model.SkillProfile, error)
}

// ClaimsHandler handles skill claim requests.
type ClaimsHandler struct {
	deps ClaimDependencies
}

// NewClaimsHandler creates a new claims handler.
func NewClaimsHandler(deps ClaimDependencies) *ClaimsHandler {
	return &ClaimsHandler{deps: deps}
}

// claimRequest mirrors the OpenAPI schema for POST /claims. The subject
// is always the authenticated caller.
type claimRequest struct {
	Skill string `json:"skill"`
}

type claimResponse struct {
	Subject              string    `json:"subject"`
	Skill                string    `json:"skill"`
	Claimed              bool      `json:"claimed"`
	Credibility          uint64    `json:"credibility"`
	EndorsementsReceived uint64    `json:"endorsements_received"`
	LastUpdated          time.Time `json:"last_updated"`
}

// HandleClaim handles POST /claims requests.
func (h *ClaimsHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_claim"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	profile, err := h.deps.Claim(r.Context(), caller, strings.TrimSpace(req.Skill))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, claimResponse{
		Subject:              caller,
		Skill:                strings.TrimSpace(req.Skill),
		Claimed:              profile.Claimed,
		Credibility:          profile.Credibility,
		EndorsementsReceived: profile.EndorsementsReceived,
		LastUpdated:          profile.LastUpdated,
	})
}
