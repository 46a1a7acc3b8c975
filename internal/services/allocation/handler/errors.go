package handler

import "errors"

// Engine error taxonomy. The gateway maps these to HTTP status codes; all of
// them leave the ledger and request rows exactly as before the call.
var (
	// ErrQuotaExceeded rejects a submission whose quantity is larger than
	// the remaining quota for the (user, stock) pair.
	ErrQuotaExceeded = errors.New("requested quantity exceeds remaining quota")

	// ErrInsufficientStock fires when a fulfillment would draw avail below
	// zero. Accept always computes a safe sub-quantity first, so seeing this
	// from Accept means an invariant was broken.
	ErrInsufficientStock = errors.New("insufficient stock available")

	// ErrInvalidState rejects a transition from a terminal or wrong state.
	ErrInvalidState = errors.New("request is not in a valid state for this operation")

	// ErrForbidden rejects a caller lacking the required role or ownership.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound reports an absent stock, request or user.
	ErrNotFound = errors.New("not found")
)
