package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tikoyangu/internal/status"
	"tikoyangu/models"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

const eventsCollection = "events"

// EventStore is the read-only view of events the ticket core consumes.
// Event CRUD itself lives behind the regular record API.
type EventStore struct {
	app core.App
}

func NewEventStore(app core.App) *EventStore {
	return &EventStore{app: app}
}

func (s *EventStore) EventByID(ctx context.Context, id string) (*models.Event, error) {
	record, err := s.app.FindRecordById(eventsCollection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, status.ErrNotFound
		}
		return nil, fmt.Errorf("eventByID: %w", err)
	}
	return recordToEvent(record), nil
}

func recordToEvent(record *core.Record) *models.Event {
	return &models.Event{
		ID:          record.Id,
		Title:       record.GetString("title"),
		Description: record.GetString("description"),
		Venue:       record.GetString("venue"),
		Location:    record.GetString("location"),
		StartDate:   record.GetString("start_date"),
		EndDate:     record.GetString("end_date"),
		StartTime:   record.GetString("start_time"),
		EndTime:     record.GetString("end_time"),
		OrganizerID: record.GetString("organizer_id"),
		Status:      models.EventStatus(record.GetString("status")),

		EarlybirdPrice: priceField(record, "earlybird_price"),
		RegularPrice:   priceField(record, "regular_price"),
		VIPPrice:       priceField(record, "vip_price"),
		VVIPPrice:      priceField(record, "vvip_price"),
		AtTheGatePrice: priceField(record, "at_the_gate_price"),
	}
}

func priceField(record *core.Record, name string) decimal.Decimal {
	return parsePrice(record.Id, record.GetString(name))
}
