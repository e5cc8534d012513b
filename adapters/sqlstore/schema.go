package sqlstore

import (
	"embed"

	"github.com/artpar/crudgate/core/entity"
)

//go:embed migrations
var migrationsFS embed.FS

// EntityPaths returns the tables owned by this package for module, users first
// since products reference them.
func EntityPaths(module string) entity.PathProvider {
	return entity.PathProviderFunc(func() []entity.Path {
		return []entity.Path{
			{Module: module, Name: "users", FS: migrationsFS, Dir: "migrations/users"},
			{Module: module, Name: "products", FS: migrationsFS, Dir: "migrations/products"},
		}
	})
}
