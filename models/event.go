package models

import (
	"github.com/shopspring/decimal"
)

// EventStatus mirrors the events collection status field. Only active
// events are purchasable.
type EventStatus string

const (
	EventActive   EventStatus = "active"
	EventArchived EventStatus = "archived"
	EventDeleted  EventStatus = "deleted"
)

// Event is the read-only view of an event consumed by the ticket core.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Venue       string      `json:"venue"`
	Location    string      `json:"location"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
	OrganizerID string      `json:"organizer_id"`
	Status      EventStatus `json:"status"`

	EarlybirdPrice decimal.Decimal `json:"earlybird_price"`
	RegularPrice   decimal.Decimal `json:"regular_price"`
	VIPPrice       decimal.Decimal `json:"vip_price"`
	VVIPPrice      decimal.Decimal `json:"vvip_price"`
	AtTheGatePrice decimal.Decimal `json:"at_the_gate_price"`
}

// Purchasable reports whether tickets may still be sold for the event.
func (e *Event) Purchasable() bool {
	return e.Status == EventActive
}
