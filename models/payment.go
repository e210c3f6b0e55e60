package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSession is the short-lived redis view of an in-flight push
// payment, keyed by the gateway checkout request id. It exists so status
// polling does not hit the ticket store; the ticket row stays the source
// of truth.
type PaymentSession struct {
	CheckoutRequestID string          `json:"checkout_request_id"`
	TicketID          string          `json:"ticket_id"`
	EventID           string          `json:"event_id"`
	Phone             string          `json:"phone"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"` // pending, completed, failed
	CreatedAt         time.Time       `json:"created_at"`
}

const (
	SessionPending   = "pending"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)
