package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tikoyangu/internal/services/notify"
	"tikoyangu/models"
	"tikoyangu/monitoring"
	"tikoyangu/utils"
)

// ConfirmationPipeline runs the side effects of a confirmed payment:
// credential assignment, then the delivery channels (email with a PDF
// ticket, SMS, realtime publish) concurrently. Channels are isolated;
// one failing never blocks another, and nothing here can revert the
// ticket.
type ConfirmationPipeline struct {
	store    TicketStore
	events   EventStore
	email    EmailSender
	sms      SMSSender
	realtime RealtimePublisher
	logger   *slog.Logger
}

func NewConfirmationPipeline(
	store TicketStore,
	events EventStore,
	email EmailSender,
	sms SMSSender,
	realtime RealtimePublisher,
	logger *slog.Logger,
) *ConfirmationPipeline {
	return &ConfirmationPipeline{
		store:    store,
		events:   events,
		email:    email,
		sms:      sms,
		realtime: realtime,
		logger:   logger,
	}
}

// Run executes the full pipeline for a freshly confirmed ticket. Safe
// to call again for the same ticket: the credential is written at most
// once and redelivery of notifications is harmless.
func (p *ConfirmationPipeline) Run(ctx context.Context, ticket *models.Ticket) {
	if ticket.Credential == "" {
		credential, err := utils.NewCredential()
		if err != nil {
			p.logger.Error("credential generation failed", "ticket_id", ticket.ID, "error", err)
			return
		}
		assigned, err := p.store.SetCredential(ctx, ticket.ID, credential)
		if err != nil {
			p.logger.Error("credential assignment failed", "ticket_id", ticket.ID, "error", err)
			return
		}
		if assigned {
			ticket.Credential = credential
		} else {
			// Another pipeline run got there first; reload theirs.
			current, err := p.store.TicketByID(ctx, ticket.ID)
			if err != nil {
				p.logger.Error("credential reload failed", "ticket_id", ticket.ID, "error", err)
				return
			}
			ticket.Credential = current.Credential
		}
	}

	var event *models.Event
	if p.events != nil {
		var err error
		event, err = p.events.EventByID(ctx, ticket.EventID)
		if err != nil {
			// Deliver what we can without event details.
			p.logger.Warn("event lookup failed during confirmation",
				"ticket_id", ticket.ID, "event_id", ticket.EventID, "error", err)
			event = nil
		}
	}

	var wg sync.WaitGroup

	p.dispatch(&wg, "email", func() error { return p.sendEmail(ticket, event) })
	p.dispatch(&wg, "sms", func() error { return p.sendSMS(ctx, ticket, event) })
	p.dispatch(&wg, "realtime", func() error { return p.publishRealtime(ticket) })

	wg.Wait()
}

// errSkipped marks a channel that had nothing to deliver to.
var errSkipped = fmt.Errorf("no recipient")

func (p *ConfirmationPipeline) dispatch(wg *sync.WaitGroup, channel string, fn func() error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				monitoring.TrackNotification(channel, "failed")
				p.logger.Error("confirmation channel panicked", "channel", channel, "panic", r)
			}
		}()

		err := fn()
		switch {
		case err == nil:
			monitoring.TrackNotification(channel, "sent")
		case err == errSkipped:
			monitoring.TrackNotification(channel, "skipped")
		default:
			monitoring.TrackNotification(channel, "failed")
			p.logger.Error("confirmation channel failed", "channel", channel, "error", err)
		}
	}()
}

func (p *ConfirmationPipeline) sendEmail(ticket *models.Ticket, event *models.Event) error {
	if p.email == nil || ticket.BuyerEmail == "" {
		return errSkipped
	}

	doc := &notify.TicketDocument{
		TicketID:   ticket.ID,
		Credential: ticket.Credential,
		BuyerName:  ticket.BuyerName,
		BuyerEmail: ticket.BuyerEmail,
		BuyerPhone: ticket.BuyerPhone,
		TicketType: ticket.TicketType,
		Price:      ticket.Price.StringFixed(2),
	}
	title := "your event"
	if event != nil {
		doc.EventTitle = event.Title
		doc.Venue = event.Venue
		doc.Location = event.Location
		doc.StartDate = event.StartDate
		doc.StartTime = event.StartTime
		doc.EndDate = event.EndDate
		doc.EndTime = event.EndTime
		title = event.Title
	}

	pdfBytes, err := notify.GenerateTicketPDF(doc)
	if err != nil {
		return fmt.Errorf("ticket pdf: %w", err)
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nYour payment was received and your ticket for %s is confirmed.\n\nTicket code: %s\n\nYour printable ticket is attached. Present the QR code at the entrance.\n",
		ticket.BuyerName, title, ticket.Credential,
	)
	filename := fmt.Sprintf("ticket-%s.pdf", ticket.ID)

	return p.email.Send(ticket.BuyerEmail, "Your ticket is confirmed", body, pdfBytes, filename)
}

func (p *ConfirmationPipeline) sendSMS(ctx context.Context, ticket *models.Ticket, event *models.Event) error {
	if p.sms == nil || ticket.BuyerPhone == "" {
		return errSkipped
	}

	title := "your event"
	if event != nil {
		title = event.Title
	}
	body := fmt.Sprintf("Payment received. Your ticket for %s is confirmed. Code: %s", title, ticket.Credential)

	return p.sms.Send(ctx, ticket.BuyerPhone, body)
}

func (p *ConfirmationPipeline) publishRealtime(ticket *models.Ticket) error {
	if p.realtime == nil || ticket.BuyerPhone == "" {
		return errSkipped
	}
	p.realtime.PublishPaymentResult(ticket.BuyerPhone, ticket.ID, ticket.CheckoutRequestID, "completed")
	return nil
}
