package engine

import "errors"

// Validation
var (
	ErrInvalidSelection = errors.New("invalid number selection")
)

// Authorization
var (
	ErrNotOwner = errors.New("caller is not the ticket owner")
	ErrNotAdmin = errors.New("caller is not the administrator")
)

// State
var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrAlreadyClaimed   = errors.New("prize already claimed")
	ErrDrawNotFinalized = errors.New("draw not finalized for this game day")
	ErrDayAlreadyDrawn  = errors.New("game day already drawn")
	ErrNoPrize          = errors.New("ticket won no prize")
	ErrUnknownRequest   = errors.New("unknown or stale randomness request")
	ErrGamePaused       = errors.New("game is paused")
)

// Resource
var (
	ErrPoolExhausted = errors.New("prize pool exhausted with no reserve to refill")
)

// External dependency failures surface without further detail; the caller
// retries or escalates, the engine never does.
var (
	ErrRandomnessRequest = errors.New("randomness request failed")
)
