package contract

import (
	"errors"

	"flashArb/internal/wire"
)

// Every failure aborts the whole invocation. Each condition gets its own
// sentinel so an off-chain caller can simulate an attempt and classify
// exactly why it would fail.
var (
	ErrZeroRole        = errors.New("contract: role identity must be non-zero")
	ErrUnauthorized    = errors.New("contract: caller is not allowed")
	ErrReentrancy      = errors.New("contract: invocation already in progress")
	ErrDeadlineElapsed = errors.New("contract: deadline block elapsed")
	ErrUnknownVenue    = errors.New("contract: venue is not registered")
	ErrUnknownCallback = errors.New("contract: callback caller is not a recorded venue")
	ErrBadSettlement   = errors.New("contract: settlement deltas do not match the request")
	ErrNoProfit        = errors.New("contract: no profit realized")
	ErrBelowMinProfit  = errors.New("contract: profit below declared minimum")
	ErrTransferFailed  = errors.New("contract: asset transfer failed")
	ErrZeroBalance     = errors.New("contract: nothing to sweep")
)

// Reason maps an invocation error onto a short stable label for records
// and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrReentrancy):
		return "reentrancy"
	case errors.Is(err, wire.ErrBadLength):
		return "bad_length"
	case errors.Is(err, wire.ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, wire.ErrBadDirection):
		return "bad_direction"
	case errors.Is(err, ErrDeadlineElapsed):
		return "deadline_elapsed"
	case errors.Is(err, ErrUnknownVenue):
		return "unknown_venue"
	case errors.Is(err, ErrUnknownCallback):
		return "unknown_callback"
	case errors.Is(err, ErrBadSettlement):
		return "bad_settlement"
	case errors.Is(err, ErrNoProfit):
		return "no_profit"
	case errors.Is(err, ErrBelowMinProfit):
		return "below_min_profit"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrZeroBalance):
		return "zero_balance"
	default:
		return "venue_failure"
	}
}
