package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketValid    TicketStatus = "valid"
	TicketUsed     TicketStatus = "used"
	TicketCanceled TicketStatus = "canceled"
	TicketRefunded TicketStatus = "refunded"
)

// transitions is the full set of allowed status edges. Anything not
// listed here is rejected, including reverse and skip transitions.
var transitions = map[TicketStatus][]TicketStatus{
	TicketPending: {TicketValid, TicketCanceled},
	TicketValid:   {TicketUsed, TicketRefunded, TicketCanceled},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s TicketStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketPending, TicketValid, TicketUsed, TicketCanceled, TicketRefunded:
		return true
	}
	return false
}

type Ticket struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	BuyerName  string          `json:"buyer_name"`
	BuyerEmail string          `json:"buyer_email"`
	BuyerPhone string          `json:"buyer_phone"`
	TicketType string          `json:"ticket_type"`
	Price      decimal.Decimal `json:"price"`
	Status     TicketStatus    `json:"status"`

	// Credential is the scannable token proving validity at the venue.
	// Empty until payment succeeds, immutable afterwards.
	Credential string `json:"credential,omitempty"`

	PaymentProvider   string `json:"payment_provider"`
	MerchantRequestID string `json:"merchant_request_id,omitempty"`
	// CheckoutRequestID is the gateway's checkout/session id, the sole
	// join key used to reconcile payment callbacks. Unique per ticket.
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`

	RefundReason string     `json:"refund_reason,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	RefundedBy   string     `json:"refunded_by,omitempty"`

	LastModifiedBy string     `json:"last_modified_by,omitempty"`
	LastModifiedAt *time.Time `json:"last_modified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
