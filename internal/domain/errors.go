package domain

import "errors"

var (
	// ErrInvalidRequest covers bad input: non-positive amounts, unknown or
	// inactive campaigns. Not retryable as-is.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is returned for an unknown reference or donation id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateReference means the ledger already holds this reference.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrInvalidTransition means the stored status no longer matched the
	// expected one at write time. Callers treat this as a no-op, not a hard
	// failure: the row already reached a terminal state through another path.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrGatewayAuth: could not obtain provider credentials. Retryable with a
	// fresh attempt (and a fresh reference).
	ErrGatewayAuth = errors.New("gateway authentication failed")

	// ErrGatewayUnavailable: network failure or timeout. The submission may or
	// may not have reached the provider, so the outcome is ambiguous.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrGatewayRejected: the provider explicitly refused the payment. Terminal.
	ErrGatewayRejected = errors.New("gateway rejected payment")
)
