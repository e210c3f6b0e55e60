package handlers

import (
	"errors"
	"time"

	"tikoyangu/internal/services"
	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	app     *pocketbase.PocketBase
	tickets *services.TicketService
	gateway services.PaymentGateway
}

func NewAdminHandler(app *pocketbase.PocketBase, tickets *services.TicketService, gateway services.PaymentGateway) *AdminHandler {
	return &AdminHandler{
		app:     app,
		tickets: tickets,
		gateway: gateway,
	}
}

func requireAdmin(e *core.RequestEvent) (services.Operator, error) {
	if e.Auth == nil || e.Auth.Collection().Name != "admins" {
		return services.Operator{}, apis.NewUnauthorizedError("Admin access required", nil)
	}
	return operatorFromAuth(e), nil
}

// Refund moves a valid ticket to refunded with a mandatory reason.
func (h *AdminHandler) Refund(e *core.RequestEvent) error {
	op, err := requireAdmin(e)
	if err != nil {
		return err
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Missing ticket id", nil)
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ticket, err := h.tickets.Refund(e.Request.Context(), op, id, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, status.ErrNotFound):
			return apis.NewNotFoundError("Ticket not found", nil)
		case errors.Is(err, status.ErrAlreadyRefunded):
			return apis.NewBadRequestError("Ticket is already refunded", nil)
		case errors.Is(err, status.ErrInvalidOperation), errors.Is(err, status.ErrInvalidInput):
			return apis.NewBadRequestError(err.Error(), nil)
		default:
			return apis.NewInternalServerError("Failed to refund ticket", err)
		}
	}

	return e.JSON(200, ticket)
}

// UpdateStatus is the admin override for stuck tickets. Legal edges
// only; refunds must go through the refund endpoint.
func (h *AdminHandler) UpdateStatus(e *core.RequestEvent) error {
	op, err := requireAdmin(e)
	if err != nil {
		return err
	}

	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Missing ticket id", nil)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := e.BindBody(&body); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	ticket, err := h.tickets.UpdateStatus(e.Request.Context(), op, id, models.TicketStatus(body.Status))
	if err != nil {
		switch {
		case errors.Is(err, status.ErrNotFound):
			return apis.NewNotFoundError("Ticket not found", nil)
		case errors.Is(err, status.ErrInvalidInput), errors.Is(err, status.ErrInvalidOperation):
			return apis.NewBadRequestError(err.Error(), nil)
		default:
			return apis.NewInternalServerError("Failed to update status", err)
		}
	}

	return e.JSON(200, ticket)
}

// SearchTickets powers the admin ticket browser.
func (h *AdminHandler) SearchTickets(e *core.RequestEvent) error {
	if _, err := requireAdmin(e); err != nil {
		return err
	}

	query := e.Request.URL.Query()
	q := models.TicketQuery{
		EventID:    query.Get("event_id"),
		BuyerEmail: query.Get("buyer_email"),
		BuyerName:  query.Get("buyer_name"),
		Status:     models.TicketStatus(query.Get("status")),
	}
	if v := query.Get("created_after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.CreatedGTE = t
		}
	}
	if v := query.Get("created_before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.CreatedLTE = t
		}
	}

	tickets, err := h.tickets.Search(e.Request.Context(), q)
	if err != nil {
		return apis.NewInternalServerError("Failed to search tickets", err)
	}

	return e.JSON(200, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// Stats returns counts and revenue for one event or platform-wide.
func (h *AdminHandler) Stats(e *core.RequestEvent) error {
	op, err := requireAdmin(e)
	if err != nil {
		return err
	}

	stats, err := h.tickets.Stats(e.Request.Context(), op, e.Request.URL.Query().Get("event_id"))
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return apis.NewNotFoundError("Event not found", nil)
		}
		return apis.NewInternalServerError("Failed to compute stats", err)
	}

	return e.JSON(200, stats)
}

// StalePending lists tickets pending past the given age for manual
// follow-up. Read-only.
func (h *AdminHandler) StalePending(e *core.RequestEvent) error {
	if _, err := requireAdmin(e); err != nil {
		return err
	}

	maxAge := time.Hour
	if v := e.Request.URL.Query().Get("max_age"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apis.NewBadRequestError("Invalid max_age duration", err)
		}
		maxAge = d
	}

	tickets, err := h.tickets.StaleTickets(e.Request.Context(), maxAge)
	if err != nil {
		return apis.NewInternalServerError("Failed to list stale tickets", err)
	}

	return e.JSON(200, map[string]any{
		"max_age": maxAge.String(),
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// QueryPayment probes the gateway for the status of an earlier push.
// Diagnostic only; callbacks remain the authority for transitions.
func (h *AdminHandler) QueryPayment(e *core.RequestEvent) error {
	if _, err := requireAdmin(e); err != nil {
		return err
	}

	checkoutID := e.Request.PathValue("checkoutId")
	if checkoutID == "" {
		return apis.NewBadRequestError("Missing checkout request id", nil)
	}

	reply, err := h.gateway.QueryStatus(e.Request.Context(), checkoutID)
	if err != nil {
		return apis.NewApiError(502, "Gateway status query failed", err)
	}

	return e.JSON(200, reply)
}
