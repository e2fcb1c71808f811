// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/vouch/internal/domain/ledger"
)

// SlashDependencies defines the interface for slash operations.
type SlashDependencies interface {
	Slash(ctx context.Context, caller, subject, skill string, index uint64) (ledger.SlashReceipt, error)
}

// SlashesHandler handles slash requests.
type SlashesHandler struct {
	deps SlashDependencies
}

// NewSlashesHandler creates a new slashes handler.
func NewSlashesHandler(deps SlashDependencies) *SlashesHandler {
	return &SlashesHandler{deps: deps}
}

// slashRequest mirrors the OpenAPI schema for POST /slashes. The caller
// must be the ledger authority; Index addresses the endorsement within
// the subject's sequence.
type slashRequest struct {
	Subject string  `json:"subject"`
	Skill   string  `json:"skill"`
	Index   *uint64 `json:"index"`
}

func (s slashRequest) validate() error {
	switch {
	case strings.TrimSpace(s.Subject) == "":
		return errors.New("missing subject")
	case strings.TrimSpace(s.Skill) == "":
		return errors.New("missing skill")
	case s.Index == nil:
		return errors.New("missing index")
	}
	return nil
}

type slashResponse struct {
	Status      string `json:"status"`
	Endorser    string `json:"endorser"`
	Forfeited   uint64 `json:"forfeited"`
	Credibility uint64 `json:"credibility"`
	Standing    uint64 `json:"standing"`
}

// HandleSlash handles POST /slashes requests.
func (h *SlashesHandler) HandleSlash(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_slash"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req slashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.Slash(r.Context(), caller,
		strings.TrimSpace(req.Subject), strings.TrimSpace(req.Skill), *req.Index)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, slashResponse{
		Status:      "slashed",
		Endorser:    receipt.Endorser,
		Forfeited:   receipt.Forfeited,
		Credibility: receipt.Credibility,
		Standing:    receipt.Standing,
	})
}
