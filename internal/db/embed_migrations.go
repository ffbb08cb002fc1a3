package db

import "embed"

// MigrationFS embeds the schema migrations under internal/db/migrations for cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
