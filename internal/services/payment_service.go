package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/redis/go-redis/v9"
)

// PaymentSessions tracks in-flight push payments in redis, keyed by the
// gateway checkout request id. It only serves cheap status polling; the
// ticket row remains authoritative.
type PaymentSessions struct {
	Redis *redis.Client
	ttl   time.Duration
}

func NewPaymentSessions(redisClient *redis.Client, ttl time.Duration) *PaymentSessions {
	return &PaymentSessions{
		Redis: redisClient,
		ttl:   ttl,
	}
}

func sessionKey(checkoutID string) string {
	return fmt.Sprintf("payment:%s", checkoutID)
}

// Create records a fresh pending session. Fields are written one by one
// in a fixed order so expectations in tests stay deterministic.
func (s *PaymentSessions) Create(ctx context.Context, session *models.PaymentSession) error {
	key := sessionKey(session.CheckoutRequestID)

	fields := []struct {
		name  string
		value any
	}{
		{"ticket_id", session.TicketID},
		{"event_id", session.EventID},
		{"phone", session.Phone},
		{"amount", session.Amount.StringFixed(2)},
		{"status", models.SessionPending},
		{"created_at", session.CreatedAt.Unix()},
	}
	for _, f := range fields {
		if err := s.Redis.HSet(ctx, key, f.name, f.value).Err(); err != nil {
			return fmt.Errorf("payment session create: %w", err)
		}
	}

	if err := s.Redis.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("payment session expire: %w", err)
	}

	return nil
}

// Status returns the cached session status for a checkout id.
func (s *PaymentSessions) Status(ctx context.Context, checkoutID string) (string, error) {
	result, err := s.Redis.HGet(ctx, sessionKey(checkoutID), "status").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", status.ErrNotFound
		}
		return "", fmt.Errorf("payment session status: %w", err)
	}
	return result, nil
}

// MarkStatus flips the cached status once the callback resolves the
// payment. A missing session (expired key) is not an error.
func (s *PaymentSessions) MarkStatus(ctx context.Context, checkoutID, sessionStatus string) error {
	key := sessionKey(checkoutID)

	exists, err := s.Redis.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("payment session exists: %w", err)
	}
	if exists == 0 {
		return nil
	}

	if err := s.Redis.HSet(ctx, key, "status", sessionStatus).Err(); err != nil {
		return fmt.Errorf("payment session mark: %w", err)
	}
	return nil
}
