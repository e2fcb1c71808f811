// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// FaucetDependencies defines the interface for dev faucet grants.
type FaucetDependencies interface {
	Faucet(ctx context.Context, account string, amount uint64) (uint64, error)
	Balance(ctx context.Context, account string) uint64
}

// FaucetHandler handles dev faucet requests.
type FaucetHandler struct {
	deps FaucetDependencies
}

// NewFaucetHandler creates a new faucet handler.
func NewFaucetHandler(deps FaucetDependencies) *FaucetHandler {
	return &FaucetHandler{deps: deps}
}

// faucetRequest mirrors the OpenAPI schema for POST /faucet. A zero or
// absent amount grants the configured default.
type faucetRequest struct {
	Amount uint64 `json:"amount"`
}

type faucetResponse struct {
	Account string `json:"account"`
	Granted uint64 `json:"granted"`
	Balance uint64 `json:"balance"`
}

// HandleFaucet handles POST /faucet requests for the authenticated caller.
func (h *FaucetHandler) HandleFaucet(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_faucet"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req faucetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	granted, err := h.deps.Faucet(r.Context(), caller, req.Amount)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, faucetResponse{
		Account: caller,
		Granted: granted,
		Balance: h.deps.Balance(r.Context(), caller),
	})
}
