package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
)

const ticketsCollection = "tickets"

// TicketStore is the durable record of tickets, backed by the app's
// tickets collection. Reads and creates go through the record API; the
// status transition is a raw conditional UPDATE so that two concurrent
// callers for the same row cannot both apply it.
type TicketStore struct {
	app core.App
}

func NewTicketStore(app core.App) *TicketStore {
	return &TicketStore{app: app}
}

// CreateTicket persists a new ticket and returns it with the assigned id.
func (s *TicketStore) CreateTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	collection, err := s.app.FindCollectionByNameOrId(ticketsCollection)
	if err != nil {
		return nil, fmt.Errorf("createTicket: find collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("event_id", t.EventID)
	record.Set("buyer_name", t.BuyerName)
	record.Set("buyer_email", t.BuyerEmail)
	record.Set("buyer_phone", t.BuyerPhone)
	record.Set("ticket_type", t.TicketType)
	record.Set("price", t.Price.StringFixed(2))
	record.Set("status", string(t.Status))
	record.Set("payment_provider", t.PaymentProvider)
	record.Set("merchant_request_id", t.MerchantRequestID)
	record.Set("checkout_request_id", t.CheckoutRequestID)

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return nil, fmt.Errorf("createTicket: save: %w", err)
	}

	return recordToTicket(record), nil
}

func (s *TicketStore) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(ticketsCollection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrNotFound
		}
		return nil, fmt.Errorf("ticketByID: %w", err)
	}
	return recordToTicket(record), nil
}

// TicketByCheckoutID resolves the sole join key used by the webhook
// reconciler. The checkout_request_id column carries a unique index, so
// at most one row can match.
func (s *TicketStore) TicketByCheckoutID(ctx context.Context, checkoutID string) (*models.Ticket, error) {
	if checkoutID == "" {
		return nil, status.ErrNotFound
	}

	record, err := s.app.FindFirstRecordByFilter(
		ticketsCollection,
		"checkout_request_id = {:cid}",
		dbx.Params{"cid": checkoutID},
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrNotFound
		}
		return nil, fmt.Errorf("ticketByCheckoutID: %w", err)
	}
	return recordToTicket(record), nil
}

// Transition applies tr as one atomic conditional update. It returns
// false with a nil error when the row had already left tr.From, which
// callers treat as "someone else resolved it first".
func (s *TicketStore) Transition(ctx context.Context, tr models.StatusTransition) (bool, error) {
	if !tr.From.CanTransitionTo(tr.To) {
		return false, status.ErrInvalidOperation
	}

	now := types.NowDateTime()

	query := `UPDATE tickets
		SET status = {:to}, last_modified_by = {:actor}, last_modified_at = {:now}, updated = {:now}
		WHERE id = {:id} AND status = {:from}`
	params := dbx.Params{
		"to":    string(tr.To),
		"actor": tr.Actor,
		"now":   now.String(),
		"id":    tr.TicketID,
		"from":  string(tr.From),
	}

	if tr.To == models.TicketRefunded {
		query = `UPDATE tickets
			SET status = {:to}, refund_reason = {:reason}, refunded_at = {:now}, refunded_by = {:actor},
			    last_modified_by = {:actor}, last_modified_at = {:now}, updated = {:now}
			WHERE id = {:id} AND status = {:from}`
		params["reason"] = tr.RefundReason
	} else if tr.RawPayload != "" {
		query = `UPDATE tickets
			SET status = {:to}, callback_payload = {:payload},
			    last_modified_by = {:actor}, last_modified_at = {:now}, updated = {:now}
			WHERE id = {:id} AND status = {:from}`
		params["payload"] = tr.RawPayload
	}

	res, err := s.app.DB().NewQuery(query).Bind(params).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("transition %s: %s -> %s: %w", tr.TicketID, tr.From, tr.To, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition %s: rows affected: %w", tr.TicketID, err)
	}
	return affected == 1, nil
}

// SetCredential writes the scannable credential exactly once. A row that
// already carries a credential is left untouched.
func (s *TicketStore) SetCredential(ctx context.Context, ticketID, credential string) (bool, error) {
	res, err := s.app.DB().NewQuery(
		`UPDATE tickets SET credential = {:cred}, updated = {:now} WHERE id = {:id} AND credential = ''`,
	).Bind(dbx.Params{
		"cred": credential,
		"now":  types.NowDateTime().String(),
		"id":   ticketID,
	}).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("setCredential %s: %w", ticketID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Search lists tickets for the administrative surface.
func (s *TicketStore) Search(ctx context.Context, q models.TicketQuery) ([]*models.Ticket, error) {
	filter := "id != ''"
	params := dbx.Params{}

	if q.EventID != "" {
		filter += " && event_id = {:eventId}"
		params["eventId"] = q.EventID
	}
	if q.BuyerEmail != "" {
		filter += " && buyer_email ~ {:buyerEmail}"
		params["buyerEmail"] = q.BuyerEmail
	}
	if q.BuyerName != "" {
		filter += " && buyer_name ~ {:buyerName}"
		params["buyerName"] = q.BuyerName
	}
	if q.Status != "" {
		filter += " && status = {:status}"
		params["status"] = string(q.Status)
	}
	if !q.CreatedGTE.IsZero() {
		filter += " && created >= {:createdGte}"
		params["createdGte"] = q.CreatedGTE.UTC().Format(types.DefaultDateLayout)
	}
	if !q.CreatedLTE.IsZero() {
		filter += " && created <= {:createdLte}"
		params["createdLte"] = q.CreatedLTE.UTC().Format(types.DefaultDateLayout)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}

	records, err := s.app.FindRecordsByFilter(ticketsCollection, filter, "-created", limit, q.Offset, params)
	if err != nil {
		return nil, fmt.Errorf("search tickets: %w", err)
	}

	tickets := make([]*models.Ticket, len(records))
	for i, record := range records {
		tickets[i] = recordToTicket(record)
	}
	return tickets, nil
}

// StalePending lists tickets still pending past the cutoff. These never
// received a callback; only the gateway can resolve them, so they are
// surfaced for audit rather than auto-transitioned.
func (s *TicketStore) StalePending(ctx context.Context, olderThan time.Time) ([]*models.Ticket, error) {
	records, err := s.app.FindRecordsByFilter(
		ticketsCollection,
		"status = {:status} && created <= {:cutoff}",
		"created",
		-1,
		0,
		dbx.Params{
			"status": string(models.TicketPending),
			"cutoff": olderThan.UTC().Format(types.DefaultDateLayout),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("stalePending: %w", err)
	}

	tickets := make([]*models.Ticket, len(records))
	for i, record := range records {
		tickets[i] = recordToTicket(record)
	}
	return tickets, nil
}

// parsePrice reads a stored price column. Empty is a legitimate zero
// (unpriced event tiers); anything else that fails to parse is data
// corruption worth reporting, read as zero so the row still loads.
func parsePrice(recordID, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		slog.Error("unparseable price column", "record_id", recordID, "value", raw)
		return decimal.Zero
	}
	return d
}

func recordToTicket(record *core.Record) *models.Ticket {
	price := parsePrice(record.Id, record.GetString("price"))

	t := &models.Ticket{
		ID:                record.Id,
		EventID:           record.GetString("event_id"),
		BuyerName:         record.GetString("buyer_name"),
		BuyerEmail:        record.GetString("buyer_email"),
		BuyerPhone:        record.GetString("buyer_phone"),
		TicketType:        record.GetString("ticket_type"),
		Price:             price,
		Status:            models.TicketStatus(record.GetString("status")),
		Credential:        record.GetString("credential"),
		PaymentProvider:   record.GetString("payment_provider"),
		MerchantRequestID: record.GetString("merchant_request_id"),
		CheckoutRequestID: record.GetString("checkout_request_id"),
		RefundReason:      record.GetString("refund_reason"),
		RefundedBy:        record.GetString("refunded_by"),
		LastModifiedBy:    record.GetString("last_modified_by"),
		CreatedAt:         record.GetDateTime("created").Time(),
		UpdatedAt:         record.GetDateTime("updated").Time(),
	}

	if dt := record.GetDateTime("refunded_at"); !dt.IsZero() {
		ts := dt.Time()
		t.RefundedAt = &ts
	}
	if dt := record.GetDateTime("last_modified_at"); !dt.IsZero() {
		ts := dt.Time()
		t.LastModifiedAt = &ts
	}

	return t
}
