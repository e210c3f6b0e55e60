package services

import (
	"context"
	"time"

	"tikoyangu/internal/services/mpesa"
	"tikoyangu/models"
)

// TicketStore is the durable ticket record. The implementation must make
// Transition an atomic conditional update ("set status=To only where
// status=From"); everything above relies on that for idempotency.
type TicketStore interface {
	CreateTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
	TicketByID(ctx context.Context, id string) (*models.Ticket, error)
	TicketByCheckoutID(ctx context.Context, checkoutID string) (*models.Ticket, error)
	Transition(ctx context.Context, tr models.StatusTransition) (bool, error)
	SetCredential(ctx context.Context, ticketID, credential string) (bool, error)
	Search(ctx context.Context, q models.TicketQuery) ([]*models.Ticket, error)
	StalePending(ctx context.Context, olderThan time.Time) ([]*models.Ticket, error)
}

// EventStore is the read-only event lookup the ticket core consumes.
type EventStore interface {
	EventByID(ctx context.Context, id string) (*models.Event, error)
}

// PaymentGateway issues push payments and status probes.
type PaymentGateway interface {
	STKPush(ctx context.Context, r *mpesa.PushRequest) (*mpesa.PushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.QueryResponse, error)
}

// ConfirmationDispatcher runs the post-payment side effects for a
// freshly confirmed ticket. Implementations must be safe to invoke
// repeatedly for the same ticket.
type ConfirmationDispatcher interface {
	Run(ctx context.Context, ticket *models.Ticket)
}

// EmailSender delivers one message, optionally with an attachment.
type EmailSender interface {
	Send(to, subject, body string, attachment []byte, filename string) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, phone, body string) error
}

// RealtimePublisher pushes live payment results to the buyer. Always
// best-effort.
type RealtimePublisher interface {
	PublishPaymentResult(buyerPhone, ticketID, checkoutID, result string)
}

// Operator is the already-authenticated actor behind an administrative
// or organizer call.
type Operator struct {
	ID    string
	Email string
	Admin bool
}

// CanManage reports whether the operator may act on resources owned by
// organizerID. Admins manage everything; organizers only their own.
func (o Operator) CanManage(organizerID string) bool {
	return o.Admin || (o.ID != "" && o.ID == organizerID)
}
