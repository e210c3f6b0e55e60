package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Tickets carry the full payment lifecycle. Prices are stored as text
// and parsed as exact decimals; checkout_request_id and credential get
// partial unique indexes because both start out empty.
func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("tickets")

		collection.Fields.Add(
			&core.RelationField{
				Name:         "event_id",
				Required:     true,
				CollectionId: events.Id,
				MaxSelect:    1,
			},
			&core.TextField{
				Name:     "buyer_name",
				Required: true,
				Max:      120,
			},
			&core.EmailField{
				Name: "buyer_email",
			},
			&core.TextField{
				Name:     "buyer_phone",
				Required: true,
				Max:      20,
			},
			&core.TextField{
				Name:     "ticket_type",
				Required: true,
				Max:      32,
			},
			&core.TextField{
				Name:     "price",
				Required: true,
				Max:      20,
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "valid", "used", "canceled", "refunded"},
			},
			&core.TextField{
				Name: "credential",
				Max:  64,
			},
			&core.TextField{
				Name: "payment_provider",
				Max:  32,
			},
			&core.TextField{
				Name: "merchant_request_id",
				Max:  64,
			},
			&core.TextField{
				Name: "checkout_request_id",
				Max:  64,
			},
			&core.TextField{
				Name: "callback_payload",
				Max:  10000,
			},
			&core.TextField{
				Name: "refund_reason",
				Max:  500,
			},
			&core.DateField{
				Name: "refunded_at",
			},
			&core.TextField{
				Name: "refunded_by",
				Max:  64,
			},
			&core.TextField{
				Name: "last_modified_by",
				Max:  64,
			},
			&core.DateField{
				Name: "last_modified_at",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_tickets_checkout", true, "checkout_request_id", "checkout_request_id != ''")
		collection.AddIndex("idx_tickets_credential", true, "credential", "credential != ''")
		collection.AddIndex("idx_tickets_event_status", false, "event_id, status", "")
		collection.AddIndex("idx_tickets_status_created", false, "status, created", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("tickets")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
