// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// AdminDependencies defines the interface for governance operations.
type AdminDependencies interface {
	SetAuthority(ctx context.Context, caller, next string) error
	SetPaused(ctx context.Context, caller string, paused bool) error
}

// AdminHandler handles governance requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// authorityRequest mirrors the OpenAPI schema for POST /admin/authority.
type authorityRequest struct {
	Authority string `json:"authority"`
}

// pauseRequest mirrors the OpenAPI schema for POST /admin/pause.
type pauseRequest struct {
	Paused *bool `json:"paused"`
}

type authorityResponse struct {
	Status    string `json:"status"`
	Authority string `json:"authority"`
}

type pauseResponse struct {
	Status string `json:"status"`
	Paused bool   `json:"paused"`
}

// HandleAuthority handles POST /admin/authority requests.
func (h *AdminHandler) HandleAuthority(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_authority"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req authorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	next := strings.TrimSpace(req.Authority)
	if next == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing authority")))
		return
	}

	if err := h.deps.SetAuthority(r.Context(), caller, next); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, authorityResponse{Status: "ok", Authority: next})
}

// HandlePause handles POST /admin/pause requests.
func (h *AdminHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_pause"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Paused == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing paused")))
		return
	}

	if err := h.deps.SetPaused(r.Context(), caller, *req.Paused); err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pauseResponse{Status: "ok", Paused: *req.Paused})
}
