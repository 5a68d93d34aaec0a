package db

import "embed"

// EmbedMigrations holds the cache schema migrations.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
