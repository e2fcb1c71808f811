package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/vouch/internal/adapters/rank"
	"github.com/okian/vouch/internal/adapters/repository"
	service "github.com/okian/vouch/internal/app"
	"github.com/okian/vouch/internal/domain/ledger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel with the operation and the underlying cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, err)
}

// Wrap tags an arbitrary error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// statusFor translates a domain error into an HTTP status and a stable
// machine-readable code. Unknown errors map to 500.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidSkill):
		return http.StatusBadRequest, "invalid_skill"
	case errors.Is(err, ledger.ErrInvalidSubject):
		return http.StatusBadRequest, "invalid_subject"
	case errors.Is(err, ledger.ErrSelfEndorsement):
		return http.StatusBadRequest, "self_endorsement"
	case errors.Is(err, ledger.ErrInsufficientStake):
		return http.StatusBadRequest, "insufficient_stake"
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return http.StatusConflict, "already_claimed"
	case errors.Is(err, ledger.ErrSkillNotClaimed):
		return http.StatusConflict, "skill_not_claimed"
	case errors.Is(err, ledger.ErrMustClaimFirst):
		return http.StatusConflict, "must_claim_first"
	case errors.Is(err, ledger.ErrAlreadySlashed):
		return http.StatusConflict, "already_slashed"
	case errors.Is(err, ledger.ErrInsufficientCredibility):
		return http.StatusForbidden, "insufficient_credibility"
	case errors.Is(err, ledger.ErrNotAuthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, ledger.ErrInvalidIndex):
		return http.StatusNotFound, "invalid_index"
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusPaymentRequired, "transfer_failed"
	case errors.Is(err, ledger.ErrPaused):
		return http.StatusServiceUnavailable, "paused"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, service.ErrFaucetDisabled):
		return http.StatusForbidden, "faucet_disabled"
	case errors.Is(err, service.ErrFaucetLimit):
		return http.StatusBadRequest, "faucet_limit"
	case errors.Is(err, rank.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, rank.ErrInvalidLimit), errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError renders a domain failure using the shared mapping.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, Wrap(op, err))
}
