package services

import (
	"context"
	"testing"
	"time"

	"tikoyangu/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepReportsWithoutTransitioning(t *testing.T) {
	store := newFakeTicketStore()

	stale, err := store.CreateTicket(context.Background(), &models.Ticket{
		EventID:           "event-1",
		BuyerName:         "Wanjiku Kamau",
		BuyerPhone:        "254712345678",
		TicketType:        "regular",
		Price:             decimal.NewFromInt(1500),
		Status:            models.TicketPending,
		CheckoutRequestID: "ws_CO_old",
		CreatedAt:         time.Now().Add(-2 * time.Hour),
	})
	require.NoError(t, err)

	fresh, err := store.CreateTicket(context.Background(), &models.Ticket{
		EventID:           "event-1",
		BuyerName:         "Another Buyer",
		BuyerPhone:        "254700000000",
		TicketType:        "regular",
		Price:             decimal.NewFromInt(1500),
		Status:            models.TicketPending,
		CheckoutRequestID: "ws_CO_new",
	})
	require.NoError(t, err)

	s := NewSweeper(store, time.Minute, time.Hour, testLogger())
	s.sweep(context.Background())

	// The sweep only reports; both tickets stay pending.
	for _, id := range []string{stale.ID, fresh.ID} {
		ticket, err := store.TicketByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.TicketPending, ticket.Status)
	}

	listed, err := store.StalePending(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, stale.ID, listed[0].ID)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	store := newFakeTicketStore()
	s := NewSweeper(store, 10*time.Millisecond, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
