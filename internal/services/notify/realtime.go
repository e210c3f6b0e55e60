package notify

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// RealtimePublisher pushes payment results to the buyer's live channel
// so a browser polling the payment screen flips without refresh.
// Strictly best-effort.
type RealtimePublisher struct {
	pn *pubnub.PubNub
}

func NewRealtimePublisher(pn *pubnub.PubNub) *RealtimePublisher {
	return &RealtimePublisher{pn: pn}
}

// PublishPaymentResult announces the outcome on the buyer channel keyed
// by phone number.
func (p *RealtimePublisher) PublishPaymentResult(buyerPhone, ticketID, checkoutID, result string) {
	if p.pn == nil {
		return
	}

	channel := fmt.Sprintf("buyer-%s", buyerPhone)
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":                "payment_result",
			"ticket_id":           ticketID,
			"checkout_request_id": checkoutID,
			"result":              result,
		}).
		Execute()
	if err != nil {
		slog.Error("realtime publish failed", "channel", channel, "error", err)
	}
}
