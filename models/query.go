package models

import (
	"time"
)

// StatusTransition is one requested edge on the ticket state machine.
// The store applies it as a single conditional update: the transition
// lands only if the row still holds From, which is what makes duplicate
// webhook deliveries collapse into one logical outcome.
type StatusTransition struct {
	TicketID string
	From     TicketStatus
	To       TicketStatus

	// Actor is the system reconciler name or an operator id.
	Actor string

	// RefundReason is stamped together with a transition to refunded.
	RefundReason string

	// RawPayload carries the gateway callback body for audit when the
	// transition was driven by a payment webhook.
	RawPayload string
}

// TicketQuery narrows an administrative ticket search. Zero values mean
// "no constraint".
type TicketQuery struct {
	EventID    string
	BuyerEmail string
	BuyerName  string
	Status     TicketStatus
	CreatedGTE time.Time
	CreatedLTE time.Time
	Limit      int
	Offset     int
}
