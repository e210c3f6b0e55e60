package services

import (
	"context"
	"testing"
	"time"

	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSessionCreate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sessions := NewPaymentSessions(db, 15*time.Minute)

	created := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	session := &models.PaymentSession{
		CheckoutRequestID: "ws_CO_1",
		TicketID:          "ticket-1",
		EventID:           "event-1",
		Phone:             "254712345678",
		Amount:            decimal.NewFromInt(1500),
		CreatedAt:         created,
	}

	key := "payment:ws_CO_1"
	mock.ExpectHSet(key, "ticket_id", "ticket-1").SetVal(1)
	mock.ExpectHSet(key, "event_id", "event-1").SetVal(1)
	mock.ExpectHSet(key, "phone", "254712345678").SetVal(1)
	mock.ExpectHSet(key, "amount", "1500.00").SetVal(1)
	mock.ExpectHSet(key, "status", models.SessionPending).SetVal(1)
	mock.ExpectHSet(key, "created_at", created.Unix()).SetVal(1)
	mock.ExpectExpire(key, 15*time.Minute).SetVal(true)

	err := sessions.Create(context.Background(), session)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSessionStatus(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sessions := NewPaymentSessions(db, 15*time.Minute)

	mock.ExpectHGet("payment:ws_CO_1", "status").SetVal(models.SessionPending)

	st, err := sessions.Status(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSessionStatusMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sessions := NewPaymentSessions(db, 15*time.Minute)

	mock.ExpectHGet("payment:ws_CO_gone", "status").RedisNil()

	_, err := sessions.Status(context.Background(), "ws_CO_gone")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestPaymentSessionMarkStatus(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sessions := NewPaymentSessions(db, 15*time.Minute)

	mock.ExpectExists("payment:ws_CO_1").SetVal(1)
	mock.ExpectHSet("payment:ws_CO_1", "status", models.SessionCompleted).SetVal(0)

	err := sessions.MarkStatus(context.Background(), "ws_CO_1", models.SessionCompleted)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentSessionMarkStatusExpiredKey(t *testing.T) {
	db, mock := redismock.NewClientMock()
	sessions := NewPaymentSessions(db, 15*time.Minute)

	mock.ExpectExists("payment:ws_CO_old").SetVal(0)

	// An expired session is not an error; the ticket row has the truth.
	err := sessions.MarkStatus(context.Background(), "ws_CO_old", models.SessionFailed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
