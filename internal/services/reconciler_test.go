package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"tikoyangu/internal/services/mpesa"
	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successCallback(checkoutID string) *mpesa.CallbackResult {
	return &mpesa.CallbackResult{
		MerchantRequestID: "mr-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Raw:               json.RawMessage(`{"Body":{"stkCallback":{"ResultCode":0}}}`),
	}
}

func failureCallback(checkoutID string) *mpesa.CallbackResult {
	return &mpesa.CallbackResult{
		CheckoutRequestID: checkoutID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	}
}

func seedPending(t *testing.T, store *fakeTicketStore, checkoutID string) *models.Ticket {
	t.Helper()
	ticket, err := store.CreateTicket(context.Background(), &models.Ticket{
		EventID:           "event-1",
		BuyerName:         "Wanjiku Kamau",
		BuyerPhone:        "254712345678",
		TicketType:        "regular",
		Price:             decimal.NewFromInt(1500),
		Status:            models.TicketPending,
		CheckoutRequestID: checkoutID,
	})
	require.NoError(t, err)
	return ticket
}

func TestReconcileSuccess(t *testing.T) {
	store := newFakeTicketStore()
	seedPending(t, store, "ws_CO_1")
	r := NewReconciler(store, nil, nil, testLogger())

	ticket, err := r.Reconcile(context.Background(), successCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Equal(t, models.TicketValid, ticket.Status)
	assert.Equal(t, "payment-reconciler", ticket.LastModifiedBy)
}

func TestReconcileFailure(t *testing.T) {
	store := newFakeTicketStore()
	seedPending(t, store, "ws_CO_1")
	r := NewReconciler(store, nil, nil, testLogger())

	ticket, err := r.Reconcile(context.Background(), failureCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Equal(t, models.TicketCanceled, ticket.Status)
	assert.Empty(t, ticket.Credential)
}

func TestReconcileUnknownCheckoutID(t *testing.T) {
	r := NewReconciler(newFakeTicketStore(), nil, nil, testLogger())

	_, err := r.Reconcile(context.Background(), successCallback("ws_CO_unknown"))
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestReconcileDuplicateDelivery(t *testing.T) {
	store := newFakeTicketStore()
	seedPending(t, store, "ws_CO_1")
	r := NewReconciler(store, nil, nil, testLogger())

	first, err := r.Reconcile(context.Background(), successCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Equal(t, models.TicketValid, first.Status)

	// Redelivery of the same outcome is a no-op.
	second, err := r.Reconcile(context.Background(), successCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Equal(t, models.TicketValid, second.Status)
}

func TestReconcileConfirmsOncePerTicket(t *testing.T) {
	store := newFakeTicketStore()
	seedPending(t, store, "ws_CO_1")
	pipeline := &fakePipeline{}
	r := NewReconciler(store, nil, pipeline, testLogger())

	_, err := r.Reconcile(context.Background(), successCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return pipeline.count() == 1 }, time.Second, 10*time.Millisecond)

	// Redelivery must not re-run the confirmation side effects.
	_, err = r.Reconcile(context.Background(), successCallback("ws_CO_1"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, pipeline.count())
}

func TestReconcileFailureSkipsConfirmation(t *testing.T) {
	store := newFakeTicketStore()
	seedPending(t, store, "ws_CO_1")
	pipeline := &fakePipeline{}
	r := NewReconciler(store, nil, pipeline, testLogger())

	_, err := r.Reconcile(context.Background(), failureCallback("ws_CO_1"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, pipeline.count())
}

func TestReconcileSuccessAfterCancellation(t *testing.T) {
	store := newFakeTicketStore()
	ticket := seedPending(t, store, "ws_CO_1")
	r := NewReconciler(store, nil, nil, testLogger())

	applied, err := store.Transition(context.Background(), models.StatusTransition{
		TicketID: ticket.ID,
		From:     models.TicketPending,
		To:       models.TicketCanceled,
		Actor:    "admin-1",
	})
	require.NoError(t, err)
	require.True(t, applied)

	// A late success callback must not resurrect a canceled ticket.
	resolved, err := r.Reconcile(context.Background(), successCallback("ws_CO_1"))
	require.NoError(t, err)
	assert.Equal(t, models.TicketCanceled, resolved.Status)
}

func TestReconcileConcurrentDistinctTickets(t *testing.T) {
	store := newFakeTicketStore()
	r := NewReconciler(store, nil, nil, testLogger())

	const n = 20
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		checkoutID := fmt.Sprintf("ws_CO_c%d", i)
		seedPending(t, store, checkoutID)
		ids[i] = checkoutID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(checkoutID string) {
			defer wg.Done()
			_, err := r.Reconcile(context.Background(), successCallback(checkoutID))
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		ticket, err := store.TicketByCheckoutID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.TicketValid, ticket.Status)
	}
}
