package eventstore

import "embed"

// Migrations holds the goose migrations of the PostgresStore schema.
// Pass it to pg.Migrate together with MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that contains the SQL files.
const MigrationsDir = "migrations"
