package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_requests_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	stkPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stk_push_total",
			Help: "Outbound gateway push payments by outcome",
		},
		[]string{"outcome"},
	)

	paymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Inbound gateway callbacks by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	ticketTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_transitions_total",
			Help: "Applied ticket status transitions by edge",
		},
		[]string{"from", "to"},
	)

	notificationDispatch = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Confirmation channel dispatches by channel and status",
		},
		[]string{"channel", "status"},
	)

	stalePendingTickets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stale_pending_tickets",
			Help: "Tickets pending beyond the configured age window",
		},
	)
)

// TrackPurchase records one purchase attempt outcome
// (created, invalid_input, invalid_event, gateway_unavailable).
func TrackPurchase(outcome string) {
	purchaseRequests.WithLabelValues(outcome).Inc()
}

// TrackSTKPush records one outbound push payment outcome.
func TrackSTKPush(outcome string) {
	stkPushes.WithLabelValues(outcome).Inc()
}

// TrackCallback records one webhook reconciliation outcome
// (confirmed, canceled, duplicate, not_found, malformed).
func TrackCallback(outcome string) {
	paymentCallbacks.WithLabelValues(outcome).Inc()
}

// TrackTransition records one applied status edge.
func TrackTransition(from, to string) {
	ticketTransitions.WithLabelValues(from, to).Inc()
}

// TrackNotification records one channel dispatch (sent, failed, skipped).
func TrackNotification(channel, status string) {
	notificationDispatch.WithLabelValues(channel, status).Inc()
}

// SetStalePending publishes the latest sweep count.
func SetStalePending(n int) {
	stalePendingTickets.Set(float64(n))
}
