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

// EndorseDependencies defines the interface for endorsement operations.
type EndorseDependencies interface {
	Endorse(ctx context.Context, endorser, subject, skill string, stake uint64, requestID string) (ledger.EndorseReceipt, bool, error)
}

// EndorsementsHandler handles endorsement requests.
type EndorsementsHandler struct {
	deps EndorseDependencies
}

// NewEndorsementsHandler creates a new endorsements handler.
func NewEndorsementsHandler(deps EndorseDependencies) *EndorsementsHandler {
	return &EndorsementsHandler{deps: deps}
}

// endorseRequest mirrors the OpenAPI schema for POST /endorsements. The
// endorser is always the authenticated caller. RequestID is optional;
// clients that retry should set it so replays are absorbed.
type endorseRequest struct {
	Subject   string `json:"subject"`
	Skill     string `json:"skill"`
	Stake     uint64 `json:"stake"`
	RequestID string `json:"request_id"`
}

func (e endorseRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Subject) == "":
		return errors.New("missing subject")
	case strings.TrimSpace(e.Skill) == "":
		return errors.New("missing skill")
	case e.Stake == 0:
		return errors.New("missing stake")
	}
	return nil
}

type endorseResponse struct {
	Status      string `json:"status"`
	Duplicate   bool   `json:"duplicate"`
	Index       uint64 `json:"index"`
	Gain        uint64 `json:"gain"`
	Credibility uint64 `json:"credibility"`
}

// HandleEndorse handles POST /endorsements requests.
func (h *EndorsementsHandler) HandleEndorse(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_endorsement"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req endorseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, duplicate, err := h.deps.Endorse(r.Context(), caller,
		strings.TrimSpace(req.Subject), strings.TrimSpace(req.Skill),
		req.Stake, strings.TrimSpace(req.RequestID))
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, endorseResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusCreated, endorseResponse{
		Status:      "endorsed",
		Duplicate:   false,
		Index:       receipt.Index,
		Gain:        receipt.Gain,
		Credibility: receipt.Credibility,
	})
}
