package status

import "errors"

var (
	// ErrInvalidInput rejects a purchase before any external call is made.
	ErrInvalidInput = errors.New("ticket: invalid purchase input")

	// ErrInvalidEvent means the referenced event does not exist or is not
	// open for sales.
	ErrInvalidEvent = errors.New("ticket: event not purchasable")

	// ErrGatewayUnavailable means the outbound payment push itself failed.
	// No ticket is persisted and the caller may retry the whole purchase.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")

	// ErrNotFound covers missing tickets and unknown correlation ids.
	ErrNotFound = errors.New("ticket: not found")

	// ErrInvalidOperation is a disallowed state transition.
	ErrInvalidOperation = errors.New("ticket: invalid operation for current status")

	ErrAlreadyRefunded = errors.New("ticket: already refunded")

	// ErrForbidden means the operator is neither admin nor the owning
	// organizer of the event.
	ErrForbidden = errors.New("ticket: operator not allowed")
)
