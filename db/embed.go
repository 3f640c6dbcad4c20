package db

import "embed"

// MigrationsFS holds the Postgres schema migrations, applied by `storefront migrate`.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
