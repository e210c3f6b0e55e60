package services

import (
	"context"
	"log/slog"
	"time"

	"tikoyangu/monitoring"
)

// Sweeper periodically reports tickets stuck in pending past the
// configured age. It never transitions them: a late callback is still
// the only authority on the payment outcome, so stale rows are surfaced
// for audit and left alone.
type Sweeper struct {
	store    TicketStore
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

func NewSweeper(store TicketStore, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("stale pending sweeper started",
		"interval", s.interval.String(), "max_age", s.maxAge.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stale pending sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.maxAge)

	stale, err := s.store.StalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale pending sweep failed", "error", err)
		return
	}

	monitoring.SetStalePending(len(stale))
	if len(stale) == 0 {
		return
	}

	ids := make([]string, len(stale))
	for i, t := range stale {
		ids[i] = t.ID
	}
	s.logger.Warn("tickets pending past max age",
		"count", len(stale), "cutoff", cutoff.Format(time.RFC3339), "ticket_ids", ids)
}
