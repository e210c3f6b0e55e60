package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Platform staff accounts. Organizers authenticate through the regular
// users collection; membership in admins is what grants the admin bit.
func init() {
	m.Register(func(app core.App) error {
		collection := core.NewAuthCollection("admins")

		collection.Fields.Add(
			&core.TextField{
				Name: "name",
				Max:  120,
			},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("admins")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
