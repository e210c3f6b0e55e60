package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tikoyangu/internal/services/mpesa"
	"tikoyangu/internal/status"
	"tikoyangu/models"
	"tikoyangu/monitoring"
	"tikoyangu/utils"

	"github.com/shopspring/decimal"
)

// paymentProviderMpesa is the only provider currently wired. The column
// exists so a second provider can land without a schema change.
const paymentProviderMpesa = "mpesa"

// PurchaseRequest is one buyer's attempt to buy a ticket. The quoted
// price must match the event tier; the two are cross-checked so a
// stale or tampered quote never reaches the gateway.
type PurchaseRequest struct {
	EventID    string `json:"event_id"`
	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `json:"buyer_email"`
	BuyerPhone string `json:"buyer_phone"`
	TicketType string `json:"ticket_type"`
	Price      string `json:"price"`
}

// PurchaseResult is returned to the buyer while the payment is still in
// flight on their phone.
type PurchaseResult struct {
	Ticket            *models.Ticket `json:"ticket"`
	CheckoutRequestID string         `json:"checkout_request_id"`
	CustomerMessage   string         `json:"customer_message,omitempty"`
}

// TicketStats aggregates the admin dashboard numbers for one event or
// the whole platform.
type TicketStats struct {
	Total    int                    `json:"total"`
	ByStatus map[string]int         `json:"by_status"`
	Revenue  map[string]interface{} `json:"revenue"`
}

// TicketService owns the purchase flow and every operator-driven
// transition. Payment confirmation itself arrives through Reconciler.
type TicketService struct {
	store    TicketStore
	events   EventStore
	gateway  PaymentGateway
	sessions *PaymentSessions
	pipeline ConfirmationDispatcher
	email    EmailSender
	breaker  *utils.CircuitBreaker
	logger   *slog.Logger
}

func NewTicketService(
	store TicketStore,
	events EventStore,
	gateway PaymentGateway,
	sessions *PaymentSessions,
	pipeline ConfirmationDispatcher,
	email EmailSender,
	logger *slog.Logger,
) *TicketService {
	return &TicketService{
		store:    store,
		events:   events,
		gateway:  gateway,
		sessions: sessions,
		pipeline: pipeline,
		email:    email,
		breaker:  utils.NewCircuitBreaker("mpesa"),
		logger:   logger,
	}
}

// RequestPurchase validates the buyer's request, pushes the payment
// prompt to their phone, and only then persists a pending ticket. A
// failed push persists nothing, so the buyer can simply retry.
func (s *TicketService) RequestPurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	if err := validatePurchase(req); err != nil {
		monitoring.TrackPurchase("invalid_input")
		return nil, err
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		monitoring.TrackPurchase("invalid_input")
		return nil, fmt.Errorf("%w: price %q is not a number", status.ErrInvalidInput, req.Price)
	}
	if price.IsNegative() {
		monitoring.TrackPurchase("invalid_input")
		return nil, fmt.Errorf("%w: price must not be negative", status.ErrInvalidInput)
	}

	event, err := s.events.EventByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			monitoring.TrackPurchase("invalid_event")
			return nil, status.ErrInvalidEvent
		}
		return nil, err
	}
	if !event.Purchasable() {
		monitoring.TrackPurchase("invalid_event")
		return nil, status.ErrInvalidEvent
	}

	tier, ok := tierPrice(event, req.TicketType)
	if !ok {
		monitoring.TrackPurchase("invalid_input")
		return nil, fmt.Errorf("%w: unknown ticket type %q", status.ErrInvalidInput, req.TicketType)
	}
	if !tier.Equal(price) {
		monitoring.TrackPurchase("invalid_input")
		return nil, fmt.Errorf("%w: price %s does not match the %s tier", status.ErrInvalidInput, price, req.TicketType)
	}

	var push *mpesa.PushResponse
	err = s.breaker.Do(ctx, func() error {
		var pushErr error
		push, pushErr = s.gateway.STKPush(ctx, &mpesa.PushRequest{
			Amount:           price,
			Phone:            req.BuyerPhone,
			AccountReference: event.Title,
			Description:      fmt.Sprintf("%s ticket for %s", req.TicketType, event.Title),
		})
		return pushErr
	})
	if err != nil {
		monitoring.TrackSTKPush("failed")
		monitoring.TrackPurchase("gateway_unavailable")
		s.logger.Error("stk push failed", "event_id", req.EventID, "error", err)
		return nil, fmt.Errorf("%w: %v", status.ErrGatewayUnavailable, err)
	}
	monitoring.TrackSTKPush("accepted")

	ticket, err := s.store.CreateTicket(ctx, &models.Ticket{
		EventID:           req.EventID,
		BuyerName:         strings.TrimSpace(req.BuyerName),
		BuyerEmail:        strings.TrimSpace(req.BuyerEmail),
		BuyerPhone:        mpesa.NormalizePhone(req.BuyerPhone),
		TicketType:        req.TicketType,
		Price:             price,
		Status:            models.TicketPending,
		PaymentProvider:   paymentProviderMpesa,
		MerchantRequestID: push.MerchantRequestID,
		CheckoutRequestID: push.CheckoutRequestID,
	})
	if err != nil {
		// The prompt is already on the buyer's phone. The callback for
		// this checkout id will find no ticket and be dropped as unknown.
		s.logger.Error("persist pending ticket failed after push",
			"checkout_request_id", push.CheckoutRequestID, "error", err)
		return nil, err
	}

	if s.sessions != nil {
		session := &models.PaymentSession{
			CheckoutRequestID: push.CheckoutRequestID,
			TicketID:          ticket.ID,
			EventID:           ticket.EventID,
			Phone:             ticket.BuyerPhone,
			Amount:            price,
			Status:            models.SessionPending,
			CreatedAt:         time.Now(),
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			s.logger.Warn("payment session create failed", "ticket_id", ticket.ID, "error", err)
		}
	}

	monitoring.TrackPurchase("created")
	s.logger.Info("purchase accepted",
		"ticket_id", ticket.ID,
		"event_id", ticket.EventID,
		"checkout_request_id", push.CheckoutRequestID)

	return &PurchaseResult{
		Ticket:            ticket,
		CheckoutRequestID: push.CheckoutRequestID,
		CustomerMessage:   push.CustomerMessage,
	}, nil
}

func validatePurchase(req *PurchaseRequest) error {
	if req == nil {
		return status.ErrInvalidInput
	}
	if strings.TrimSpace(req.EventID) == "" {
		return fmt.Errorf("%w: event id is required", status.ErrInvalidInput)
	}
	if strings.TrimSpace(req.BuyerName) == "" {
		return fmt.Errorf("%w: buyer name is required", status.ErrInvalidInput)
	}
	if strings.TrimSpace(req.BuyerPhone) == "" {
		return fmt.Errorf("%w: buyer phone is required", status.ErrInvalidInput)
	}
	if req.BuyerEmail != "" && !strings.Contains(req.BuyerEmail, "@") {
		return fmt.Errorf("%w: buyer email is malformed", status.ErrInvalidInput)
	}
	if strings.TrimSpace(req.TicketType) == "" {
		return fmt.Errorf("%w: ticket type is required", status.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Price) == "" {
		return fmt.Errorf("%w: price is required", status.ErrInvalidInput)
	}
	return nil
}

func tierPrice(event *models.Event, tier string) (decimal.Decimal, bool) {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "earlybird":
		return event.EarlybirdPrice, true
	case "regular":
		return event.RegularPrice, true
	case "vip":
		return event.VIPPrice, true
	case "vvip":
		return event.VVIPPrice, true
	case "at_the_gate", "gate":
		return event.AtTheGatePrice, true
	}
	return decimal.Zero, false
}

// GetTicket returns one ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.store.TicketByID(ctx, id)
}

// ListTicketsForEvent lists an event's tickets for its organizer or an
// admin. Ownership is checked against the event, never the tickets.
func (s *TicketService) ListTicketsForEvent(ctx context.Context, op Operator, eventID string, q models.TicketQuery) ([]*models.Ticket, error) {
	event, err := s.events.EventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !op.CanManage(event.OrganizerID) {
		return nil, status.ErrForbidden
	}

	q.EventID = eventID
	return s.store.Search(ctx, q)
}

// UseTicket marks a valid ticket as consumed at the venue.
func (s *TicketService) UseTicket(ctx context.Context, op Operator, ticketID string) (*models.Ticket, error) {
	return s.operatorTransition(ctx, op, ticketID, models.TicketUsed)
}

// CancelTicket voids a ticket that has not been used yet.
func (s *TicketService) CancelTicket(ctx context.Context, op Operator, ticketID string) (*models.Ticket, error) {
	return s.operatorTransition(ctx, op, ticketID, models.TicketCanceled)
}

func (s *TicketService) operatorTransition(ctx context.Context, op Operator, ticketID string, to models.TicketStatus) (*models.Ticket, error) {
	ticket, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	event, err := s.events.EventByID(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if !op.CanManage(event.OrganizerID) {
		return nil, status.ErrForbidden
	}

	if !ticket.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", status.ErrInvalidOperation, ticket.Status, to)
	}

	applied, err := s.store.Transition(ctx, models.StatusTransition{
		TicketID: ticketID,
		From:     ticket.Status,
		To:       to,
		Actor:    op.ID,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to another operator or the reconciler.
		return nil, fmt.Errorf("%w: ticket already left %s", status.ErrInvalidOperation, ticket.Status)
	}

	monitoring.TrackTransition(string(ticket.Status), string(to))
	s.logger.Info("ticket transitioned",
		"ticket_id", ticketID, "from", ticket.Status, "to", to, "actor", op.ID)

	return s.store.TicketByID(ctx, ticketID)
}

// Refund moves a valid ticket to refunded, stamping who and why. Used
// tickets cannot be refunded; refunding twice reports the first refund.
func (s *TicketService) Refund(ctx context.Context, op Operator, ticketID, reason string) (*models.Ticket, error) {
	if !op.Admin {
		return nil, status.ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: refund reason is required", status.ErrInvalidInput)
	}

	ticket, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case models.TicketRefunded:
		return nil, status.ErrAlreadyRefunded
	case models.TicketValid:
		// refundable
	default:
		return nil, fmt.Errorf("%w: cannot refund a %s ticket", status.ErrInvalidOperation, ticket.Status)
	}

	applied, err := s.store.Transition(ctx, models.StatusTransition{
		TicketID:     ticketID,
		From:         models.TicketValid,
		To:           models.TicketRefunded,
		Actor:        op.ID,
		RefundReason: reason,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		current, cErr := s.store.TicketByID(ctx, ticketID)
		if cErr == nil && current.Status == models.TicketRefunded {
			return nil, status.ErrAlreadyRefunded
		}
		return nil, fmt.Errorf("%w: ticket is no longer valid", status.ErrInvalidOperation)
	}

	monitoring.TrackTransition(string(models.TicketValid), string(models.TicketRefunded))
	s.logger.Info("ticket refunded", "ticket_id", ticketID, "by", op.ID, "reason", reason)

	refunded, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	s.notifyStatusChange(refunded, "Your ticket has been refunded",
		fmt.Sprintf("Your ticket %s has been refunded.\nReason: %s\n", refunded.ID, reason))

	return refunded, nil
}

// UpdateStatus is the admin override for the lifecycle. It still only
// walks legal edges; it exists to resolve stuck tickets, not to bypass
// the state machine.
func (s *TicketService) UpdateStatus(ctx context.Context, op Operator, ticketID string, to models.TicketStatus) (*models.Ticket, error) {
	if !op.Admin {
		return nil, status.ErrForbidden
	}
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", status.ErrInvalidInput, to)
	}
	if to == models.TicketRefunded {
		return nil, fmt.Errorf("%w: use the refund operation", status.ErrInvalidOperation)
	}

	ticket, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", status.ErrInvalidOperation, ticket.Status, to)
	}

	applied, err := s.store.Transition(ctx, models.StatusTransition{
		TicketID: ticketID,
		From:     ticket.Status,
		To:       to,
		Actor:    op.ID,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: ticket already left %s", status.ErrInvalidOperation, ticket.Status)
	}

	monitoring.TrackTransition(string(ticket.Status), string(to))

	updated, err := s.store.TicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.Status == models.TicketPending && to == models.TicketValid && s.pipeline != nil {
		// An override to valid is a confirmation like any other: the
		// credential and buyer notifications must still happen.
		go s.pipeline.Run(context.Background(), updated)
		return updated, nil
	}

	s.notifyStatusChange(updated, "Your ticket status changed",
		fmt.Sprintf("Your ticket %s is now %s.\n", updated.ID, updated.Status))

	return updated, nil
}

// notifyStatusChange emails the buyer about an operator-driven change.
// Best effort: delivery failure never affects the transition.
func (s *TicketService) notifyStatusChange(ticket *models.Ticket, subject, body string) {
	if s.email == nil || ticket.BuyerEmail == "" {
		return
	}
	if err := s.email.Send(ticket.BuyerEmail, subject, body, nil, ""); err != nil {
		s.logger.Warn("status change email failed", "ticket_id", ticket.ID, "error", err)
	}
}

// Stats aggregates counts and revenue. Paid revenue counts valid and
// used tickets; refunded revenue is tracked separately.
func (s *TicketService) Stats(ctx context.Context, op Operator, eventID string) (*TicketStats, error) {
	if eventID != "" {
		event, err := s.events.EventByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if !op.CanManage(event.OrganizerID) {
			return nil, status.ErrForbidden
		}
	} else if !op.Admin {
		return nil, status.ErrForbidden
	}

	tickets, err := s.store.Search(ctx, models.TicketQuery{EventID: eventID})
	if err != nil {
		return nil, err
	}

	byStatus := map[string]int{}
	total := decimal.Zero
	paid := decimal.Zero
	refunded := decimal.Zero

	for _, t := range tickets {
		byStatus[string(t.Status)]++
		total = total.Add(t.Price)
		switch t.Status {
		case models.TicketValid, models.TicketUsed:
			paid = paid.Add(t.Price)
		case models.TicketRefunded:
			refunded = refunded.Add(t.Price)
		}
	}

	return &TicketStats{
		Total:    len(tickets),
		ByStatus: byStatus,
		Revenue: map[string]interface{}{
			"total":    total.StringFixed(2),
			"paid":     paid.StringFixed(2),
			"refunded": refunded.StringFixed(2),
		},
	}, nil
}

// Search exposes the store search to the administrative surface.
func (s *TicketService) Search(ctx context.Context, q models.TicketQuery) ([]*models.Ticket, error) {
	return s.store.Search(ctx, q)
}

// StaleTickets lists tickets pending longer than maxAge.
func (s *TicketService) StaleTickets(ctx context.Context, maxAge time.Duration) ([]*models.Ticket, error) {
	return s.store.StalePending(ctx, time.Now().Add(-maxAge))
}

// PaymentStatus answers buyer polling for an in-flight payment. The
// redis session is the fast path; the ticket row is the fallback and
// the source of truth once the session has expired.
func (s *TicketService) PaymentStatus(ctx context.Context, checkoutID string) (string, error) {
	if s.sessions != nil {
		if st, err := s.sessions.Status(ctx, checkoutID); err == nil {
			return st, nil
		} else if !errors.Is(err, status.ErrNotFound) {
			s.logger.Warn("payment session lookup failed", "checkout_request_id", checkoutID, "error", err)
		}
	}

	ticket, err := s.store.TicketByCheckoutID(ctx, checkoutID)
	if err != nil {
		return "", err
	}

	switch ticket.Status {
	case models.TicketPending:
		return models.SessionPending, nil
	case models.TicketCanceled:
		return models.SessionFailed, nil
	default:
		return models.SessionCompleted, nil
	}
}
