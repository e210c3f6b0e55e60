package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.TextField{
				Name:     "title",
				Required: true,
				Max:      200,
			},
			&core.TextField{
				Name: "description",
				Max:  5000,
			},
			&core.TextField{
				Name: "venue",
				Max:  200,
			},
			&core.TextField{
				Name: "location",
				Max:  200,
			},
			&core.TextField{
				Name: "start_date",
				Max:  32,
			},
			&core.TextField{
				Name: "end_date",
				Max:  32,
			},
			&core.TextField{
				Name: "start_time",
				Max:  16,
			},
			&core.TextField{
				Name: "end_time",
				Max:  16,
			},
			&core.RelationField{
				Name:         "organizer_id",
				CollectionId: users.Id,
				MaxSelect:    1,
			},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"active", "archived", "deleted"},
			},
			&core.TextField{
				Name: "earlybird_price",
				Max:  20,
			},
			&core.TextField{
				Name: "regular_price",
				Max:  20,
			},
			&core.TextField{
				Name: "vip_price",
				Max:  20,
			},
			&core.TextField{
				Name: "vvip_price",
				Max:  20,
			},
			&core.TextField{
				Name: "at_the_gate_price",
				Max:  20,
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

		collection.AddIndex("idx_events_status", false, "status", "")
		collection.AddIndex("idx_events_organizer", false, "organizer_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
