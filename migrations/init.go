package migrations

import (
	"io/fs"

	persistence "github.com/goliatone/go-persistence-bun"
	usernames "github.com/ring-platform/go-usernames"
	"github.com/ring-platform/go-usernames/activity"
	"github.com/ring-platform/go-usernames/profile"
	"github.com/ring-platform/go-usernames/reservation"
)

func init() {
	persistence.RegisterModel((*reservation.Record)(nil))
	persistence.RegisterModel((*profile.Record)(nil))
	persistence.RegisterModel((*activity.LogEntry)(nil))

	coreFS, err := fs.Sub(usernames.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
