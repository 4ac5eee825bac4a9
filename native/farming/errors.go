package farming

import (
	"errors"

	nativecommon "farmchain/native/common"
)

var (
	ErrInvalidParameters      = errors.New("farming: invalid parameters")
	ErrArithmetic             = errors.New("farming: arithmetic overflow")
	ErrBelowMinimumDeposit    = errors.New("farming: below minimum deposit")
	ErrIllegalStateTransition = errors.New("farming: illegal state transition")
	ErrInsufficientBalance    = errors.New("farming: insufficient balance")
	ErrNotFound               = errors.New("farming: not found")
	ErrUnauthorized           = errors.New("farming: unauthorized")
	ErrNothingToClaim         = errors.New("farming: nothing to claim")
	ErrModulePaused           = nativecommon.ErrModulePaused

	errNilBackend   = errors.New("farming engine: state backend not configured")
	errNilValuation = errors.New("farming engine: pool valuation not configured")
	errNilClock     = errors.New("farming engine: clock not configured")
)
