// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// EscrowDependencies defines the interface for balance reads.
type EscrowDependencies interface {
	EscrowBalance(ctx context.Context) uint64
	Balance(ctx context.Context, account string) uint64
}

// EscrowHandler handles escrow and account balance requests.
type EscrowHandler struct {
	deps EscrowDependencies
}

// NewEscrowHandler creates a new escrow handler.
func NewEscrowHandler(deps EscrowDependencies) *EscrowHandler {
	return &EscrowHandler{deps: deps}
}

type escrowResponse struct {
	EscrowBalance uint64 `json:"escrow_balance"`
}

type balanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

// HandleEscrow handles GET /escrow requests.
func (h *EscrowHandler) HandleEscrow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, escrowResponse{
		EscrowBalance: h.deps.EscrowBalance(r.Context()),
	})
}

// HandleBalance handles GET /balance requests for the authenticated caller.
func (h *EscrowHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_balance"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Account: caller,
		Balance: h.deps.Balance(r.Context(), caller),
	})
}
