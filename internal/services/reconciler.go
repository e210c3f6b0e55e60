package services

import (
	"context"
	"log/slog"

	"tikoyangu/internal/services/mpesa"
	"tikoyangu/models"
	"tikoyangu/monitoring"
)

// reconcilerActor is stamped as last_modified_by on callback-driven
// transitions so audit can tell them apart from operator actions.
const reconcilerActor = "payment-reconciler"

// Reconciler resolves gateway callbacks against pending tickets. It is
// the only component that moves a ticket out of pending, and it must
// stay idempotent under duplicate and delayed deliveries.
type Reconciler struct {
	store    TicketStore
	sessions *PaymentSessions
	pipeline ConfirmationDispatcher
	logger   *slog.Logger
}

func NewReconciler(store TicketStore, sessions *PaymentSessions, pipeline ConfirmationDispatcher, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		sessions: sessions,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Reconcile applies one parsed callback. Unknown checkout ids return
// status.ErrNotFound; a ticket that already left pending is returned
// unchanged with no side effects, which is what makes retries safe.
func (r *Reconciler) Reconcile(ctx context.Context, cb *mpesa.CallbackResult) (*models.Ticket, error) {
	ticket, err := r.store.TicketByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		monitoring.TrackCallback("not_found")
		return nil, err
	}

	if ticket.Status != models.TicketPending {
		monitoring.TrackCallback("duplicate")
		r.logger.Info("callback for already resolved ticket",
			"ticket_id", ticket.ID,
			"status", ticket.Status,
			"checkout_request_id", cb.CheckoutRequestID)
		return ticket, nil
	}

	target := models.TicketCanceled
	sessionStatus := models.SessionFailed
	outcome := "canceled"
	if cb.Success() {
		target = models.TicketValid
		sessionStatus = models.SessionCompleted
		outcome = "confirmed"
	}

	applied, err := r.store.Transition(ctx, models.StatusTransition{
		TicketID:   ticket.ID,
		From:       models.TicketPending,
		To:         target,
		Actor:      reconcilerActor,
		RawPayload: string(cb.Raw),
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent delivery or an operator won the race. Whoever
		// applied the edge owns its side effects.
		monitoring.TrackCallback("duplicate")
		return r.store.TicketByID(ctx, ticket.ID)
	}

	monitoring.TrackCallback(outcome)
	monitoring.TrackTransition(string(models.TicketPending), string(target))
	r.logger.Info("payment reconciled",
		"ticket_id", ticket.ID,
		"checkout_request_id", cb.CheckoutRequestID,
		"result_code", cb.ResultCode,
		"result_desc", cb.ResultDesc,
		"status", target)

	if r.sessions != nil {
		if err := r.sessions.MarkStatus(ctx, cb.CheckoutRequestID, sessionStatus); err != nil {
			r.logger.Warn("payment session mark failed",
				"checkout_request_id", cb.CheckoutRequestID, "error", err)
		}
	}

	resolved, err := r.store.TicketByID(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}

	if target == models.TicketValid && r.pipeline != nil {
		// Side effects run detached from the webhook request so a slow
		// mail server cannot delay the gateway acknowledgement.
		go r.pipeline.Run(context.Background(), resolved)
	}

	return resolved, nil
}
