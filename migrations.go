package masterclass

import "embed"

// MigrationsFS holds the Postgres schema applied at startup.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
