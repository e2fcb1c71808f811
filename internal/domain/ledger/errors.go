package ledger

import "errors"

// Sentinel kinds for ledger operation failures. Every failure is a
// precondition violation detected before any state mutation, except
// ErrTransferFailed which also covers a rejected escrow transfer after
// all preconditions passed (the operation rolls back completely).
var (
	ErrInvalidSkill            = errors.New("invalid skill identifier")
	ErrAlreadyClaimed          = errors.New("skill already claimed")
	ErrInvalidSubject          = errors.New("invalid subject identity")
	ErrSelfEndorsement         = errors.New("self endorsement forbidden")
	ErrInsufficientStake       = errors.New("stake below minimum")
	ErrSkillNotClaimed         = errors.New("subject has not claimed skill")
	ErrMustClaimFirst          = errors.New("endorser has not claimed skill")
	ErrInsufficientCredibility = errors.New("endorser credibility below threshold")
	ErrNotAuthorized           = errors.New("caller is not the authority")
	ErrInvalidIndex            = errors.New("endorsement index out of range")
	ErrAlreadySlashed          = errors.New("endorsement already slashed")
	ErrTransferFailed          = errors.New("value transfer failed")
	ErrPaused                  = errors.New("ledger is paused")
)
