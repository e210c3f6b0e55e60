package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tikoyangu/internal/services/mpesa"
	"tikoyangu/internal/status"
	"tikoyangu/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTicketStore is an in-memory TicketStore with the same conditional
// transition semantics as the real one.
type fakeTicketStore struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: map[string]*models.Ticket{}}
}

func (f *fakeTicketStore) CreateTicket(_ context.Context, t *models.Ticket) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	stored := *t
	stored.ID = fmt.Sprintf("ticket-%d", f.seq)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	f.tickets[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (f *fakeTicketStore) TicketByID(_ context.Context, id string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTicketStore) TicketByCheckoutID(_ context.Context, checkoutID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tickets {
		if t.CheckoutRequestID == checkoutID && checkoutID != "" {
			out := *t
			return &out, nil
		}
	}
	return nil, status.ErrNotFound
}

func (f *fakeTicketStore) Transition(_ context.Context, tr models.StatusTransition) (bool, error) {
	if !tr.From.CanTransitionTo(tr.To) {
		return false, status.ErrInvalidOperation
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[tr.TicketID]
	if !ok || t.Status != tr.From {
		return false, nil
	}

	now := time.Now()
	t.Status = tr.To
	t.LastModifiedBy = tr.Actor
	t.LastModifiedAt = &now
	if tr.To == models.TicketRefunded {
		t.RefundReason = tr.RefundReason
		t.RefundedBy = tr.Actor
		t.RefundedAt = &now
	}
	return true, nil
}

func (f *fakeTicketStore) SetCredential(_ context.Context, ticketID, credential string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tickets[ticketID]
	if !ok {
		return false, status.ErrNotFound
	}
	if t.Credential != "" {
		return false, nil
	}
	t.Credential = credential
	return true, nil
}

func (f *fakeTicketStore) Search(_ context.Context, q models.TicketQuery) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Ticket
	for _, t := range f.tickets {
		if q.EventID != "" && t.EventID != q.EventID {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.BuyerEmail != "" && !strings.Contains(t.BuyerEmail, q.BuyerEmail) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeTicketStore) StalePending(_ context.Context, olderThan time.Time) ([]*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.Status == models.TicketPending && !t.CreatedAt.After(olderThan) {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeEventStore struct {
	events map[string]*models.Event
}

func newFakeEventStore(events ...*models.Event) *fakeEventStore {
	f := &fakeEventStore{events: map[string]*models.Event{}}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEventStore) EventByID(_ context.Context, id string) (*models.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, status.ErrNotFound
	}
	out := *e
	return &out, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	pushErr   error
	pushCalls []*mpesa.PushRequest
	response  *mpesa.PushResponse
}

func (f *fakeGateway) STKPush(_ context.Context, r *mpesa.PushRequest) (*mpesa.PushResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pushCalls = append(f.pushCalls, r)
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	if f.response != nil {
		return f.response, nil
	}
	return &mpesa.PushResponse{
		MerchantRequestID: fmt.Sprintf("mr-%d", len(f.pushCalls)),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", len(f.pushCalls)),
		ResponseCode:      "0",
	}, nil
}

func (f *fakeGateway) QueryStatus(_ context.Context, checkoutRequestID string) (*mpesa.QueryResponse, error) {
	return &mpesa.QueryResponse{CheckoutRequestID: checkoutRequestID, ResultCode: "0"}, nil
}

type fakeEmail struct {
	mu    sync.Mutex
	err   error
	sends []struct {
		To, Subject, Filename string
		Attachment            []byte
	}
}

func (f *fakeEmail) Send(to, subject, body string, attachment []byte, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, struct {
		To, Subject, Filename string
		Attachment            []byte
	}{to, subject, filename, attachment})
	return nil
}

func (f *fakeEmail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeSMS struct {
	mu    sync.Mutex
	err   error
	sends []string
}

func (f *fakeSMS) Send(_ context.Context, phone, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, phone+": "+body)
	return nil
}

func (f *fakeSMS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakePipeline struct {
	mu   sync.Mutex
	runs []string
}

func (f *fakePipeline) Run(_ context.Context, ticket *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, ticket.ID)
}

func (f *fakePipeline) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

type fakeRealtime struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeRealtime) PublishPaymentResult(buyerPhone, ticketID, checkoutID, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fmt.Sprintf("buyer-%s:%s:%s", buyerPhone, ticketID, result))
}

func (f *fakeRealtime) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}
