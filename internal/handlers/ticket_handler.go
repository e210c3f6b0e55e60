package handlers

import (
	"context"
	"errors"

	"tikoyangu/internal/services"
	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	app     *pocketbase.PocketBase
	tickets *services.TicketService
}

func NewTicketHandler(app *pocketbase.PocketBase, tickets *services.TicketService) *TicketHandler {
	return &TicketHandler{
		app:     app,
		tickets: tickets,
	}
}

// operatorFromAuth maps the authenticated record to an operator. Only
// the admins collection gets the admin bit.
func operatorFromAuth(e *core.RequestEvent) services.Operator {
	if e.Auth == nil {
		return services.Operator{}
	}
	return services.Operator{
		ID:    e.Auth.Id,
		Email: e.Auth.GetString("email"),
		Admin: e.Auth.Collection().Name == "admins",
	}
}

// Purchase starts a payment-gated ticket purchase.
func (h *TicketHandler) Purchase(e *core.RequestEvent) error {
	var req services.PurchaseRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	// Authenticated buyers may omit their identity fields.
	if e.Auth != nil {
		if req.BuyerEmail == "" {
			req.BuyerEmail = e.Auth.GetString("email")
		}
		if req.BuyerName == "" {
			req.BuyerName = e.Auth.GetString("name")
		}
		if req.BuyerPhone == "" {
			req.BuyerPhone = e.Auth.GetString("phone")
		}
	}

	result, err := h.tickets.RequestPurchase(e.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrInvalidInput):
			return apis.NewBadRequestError(err.Error(), nil)
		case errors.Is(err, status.ErrInvalidEvent):
			return apis.NewBadRequestError("Event is not open for ticket sales", nil)
		case errors.Is(err, status.ErrGatewayUnavailable):
			return apis.NewApiError(503, "Payment service is unavailable, please try again", nil)
		default:
			return apis.NewInternalServerError("Failed to start purchase", err)
		}
	}

	return e.JSON(202, result)
}

// Get returns one ticket. Buyers see only their own; operators see any
// ticket on events they manage.
func (h *TicketHandler) Get(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Missing ticket id", nil)
	}

	ticket, err := h.tickets.GetTicket(e.Request.Context(), id)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Ticket not found", nil)
		}
		return apis.NewInternalServerError("Failed to load ticket", err)
	}

	op := operatorFromAuth(e)
	if !op.Admin && (op.Email == "" || op.Email != ticket.BuyerEmail) {
		return apis.NewForbiddenError("Not your ticket", nil)
	}

	return e.JSON(200, ticket)
}

// ListForEvent lists an event's tickets for its organizer or an admin.
func (h *TicketHandler) ListForEvent(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Missing event id", nil)
	}

	q := models.TicketQuery{
		Status: models.TicketStatus(e.Request.URL.Query().Get("status")),
	}

	tickets, err := h.tickets.ListTicketsForEvent(e.Request.Context(), operatorFromAuth(e), eventID, q)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrNotFound):
			return apis.NewNotFoundError("Event not found", nil)
		case errors.Is(err, status.ErrForbidden):
			return apis.NewForbiddenError("Not your event", nil)
		default:
			return apis.NewInternalServerError("Failed to list tickets", err)
		}
	}

	return e.JSON(200, map[string]any{
		"event_id": eventID,
		"tickets":  tickets,
		"count":    len(tickets),
	})
}

// Use marks a valid ticket as consumed at the venue.
func (h *TicketHandler) Use(e *core.RequestEvent) error {
	return h.transition(e, h.tickets.UseTicket)
}

// Cancel voids an unused ticket.
func (h *TicketHandler) Cancel(e *core.RequestEvent) error {
	return h.transition(e, h.tickets.CancelTicket)
}

func (h *TicketHandler) transition(
	e *core.RequestEvent,
	apply func(ctx context.Context, op services.Operator, id string) (*models.Ticket, error),
) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Authentication required", nil)
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Missing ticket id", nil)
	}

	ticket, err := apply(e.Request.Context(), operatorFromAuth(e), id)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrNotFound):
			return apis.NewNotFoundError("Ticket not found", nil)
		case errors.Is(err, status.ErrForbidden):
			return apis.NewForbiddenError("Not your event", nil)
		case errors.Is(err, status.ErrInvalidOperation):
			return apis.NewBadRequestError(err.Error(), nil)
		default:
			return apis.NewInternalServerError("Failed to update ticket", err)
		}
	}

	return e.JSON(200, ticket)
}

// PaymentStatus answers buyer polling while the push payment is on
// their phone.
func (h *TicketHandler) PaymentStatus(e *core.RequestEvent) error {
	checkoutID := e.Request.PathValue("checkoutId")
	if checkoutID == "" {
		return apis.NewBadRequestError("Missing checkout request id", nil)
	}

	st, err := h.tickets.PaymentStatus(e.Request.Context(), checkoutID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Unknown payment", nil)
		}
		return apis.NewInternalServerError("Failed to check payment status", err)
	}

	return e.JSON(200, map[string]string{
		"checkout_request_id": checkoutID,
		"status":              st,
	})
}
