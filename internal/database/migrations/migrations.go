// Package migrations contains the database schema migrations, applied
// automatically at startup through bun's migrator.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds all registered database migrations.
var Migrations = migrate.NewMigrations()
