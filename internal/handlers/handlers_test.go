package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tikoyangu/internal/services"
	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyTicketStore satisfies the store interface with no data, enough
// to drive the handlers through their error paths.
type emptyTicketStore struct{}

func (emptyTicketStore) CreateTicket(context.Context, *models.Ticket) (*models.Ticket, error) {
	return nil, status.ErrNotFound
}
func (emptyTicketStore) TicketByID(context.Context, string) (*models.Ticket, error) {
	return nil, status.ErrNotFound
}
func (emptyTicketStore) TicketByCheckoutID(context.Context, string) (*models.Ticket, error) {
	return nil, status.ErrNotFound
}
func (emptyTicketStore) Transition(context.Context, models.StatusTransition) (bool, error) {
	return false, nil
}
func (emptyTicketStore) SetCredential(context.Context, string, string) (bool, error) {
	return false, nil
}
func (emptyTicketStore) Search(context.Context, models.TicketQuery) ([]*models.Ticket, error) {
	return nil, nil
}
func (emptyTicketStore) StalePending(context.Context, time.Time) ([]*models.Ticket, error) {
	return nil, nil
}

func newRequestEvent(method, target, body string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCallbackAlwaysAcksMalformedPayload(t *testing.T) {
	h := NewMpesaHandler(nil, nil, testLogger())

	e, rec := newRequestEvent(http.MethodPost, "/api/v1/payment/mpesa/callback", "not json")
	err := h.Callback(e)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ResultCode":0`)
}

func TestCallbackAlwaysAcksUnknownTicket(t *testing.T) {
	reconciler := services.NewReconciler(emptyTicketStore{}, nil, nil, testLogger())
	h := NewMpesaHandler(nil, reconciler, testLogger())

	payload := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_unknown","ResultCode":0}}}`
	e, rec := newRequestEvent(http.MethodPost, "/api/v1/payment/mpesa/callback", payload)
	err := h.Callback(e)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ResultDesc":"Success"`)
}

func TestTransitionRequiresAuth(t *testing.T) {
	h := NewTicketHandler(nil, nil)

	e, _ := newRequestEvent(http.MethodPost, "/api/v1/tickets/abc/use", "")
	err := h.Use(e)

	require.Error(t, err)
	apiErr, ok := err.(*router.ApiError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestListForEventRequiresAuth(t *testing.T) {
	h := NewTicketHandler(nil, nil)

	e, _ := newRequestEvent(http.MethodGet, "/api/v1/events/e1/tickets", "")
	err := h.ListForEvent(e)

	require.Error(t, err)
	apiErr, ok := err.(*router.ApiError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestPaymentStatusMissingID(t *testing.T) {
	h := NewTicketHandler(nil, nil)

	e, _ := newRequestEvent(http.MethodGet, "/api/v1/payment//status", "")
	err := h.PaymentStatus(e)

	require.Error(t, err)
	apiErr, ok := err.(*router.ApiError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	h := NewAdminHandler(nil, nil, nil)

	e, _ := newRequestEvent(http.MethodPost, "/api/v1/admin/tickets/abc/refund", `{"reason":"x"}`)
	err := h.Refund(e)

	require.Error(t, err)
	apiErr, ok := err.(*router.ApiError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	e, _ = newRequestEvent(http.MethodGet, "/api/v1/admin/tickets/stats", "")
	err = h.Stats(e)

	require.Error(t, err)
	apiErr, ok = err.(*router.ApiError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
