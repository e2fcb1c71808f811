// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/vouch/internal/domain/model"
)

// defaultNoticeLimit applies when GET /notices has no limit parameter.
const defaultNoticeLimit = 20

// NoticeDependencies defines the interface for journal reads.
type NoticeDependencies interface {
	RecentNotices(ctx context.Context, n int) ([]model.Notice, error)
}

// NoticesHandler handles journal read requests.
type NoticesHandler struct {
	deps     NoticeDependencies
	maxLimit int
}

// NewNoticesHandler creates a new notices handler.
func NewNoticesHandler(deps NoticeDependencies, maxLimit int) *NoticesHandler {
	return &NoticesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGet handles GET /notices?limit=N requests, newest first.
func (h *NoticesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_notices"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultNoticeLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	notices, err := h.deps.RecentNotices(r.Context(), n)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}
