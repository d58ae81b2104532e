package migrations

import "embed"

// FS contains embedded SQLite migrations for dead-letter storage.
//
//go:embed *.sql
var FS embed.FS
