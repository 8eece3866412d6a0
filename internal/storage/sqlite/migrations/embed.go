package migrations

import "embed"

// FS contains embedded SQLite migrations for the dispatch audit store.
//
//go:embed *.sql
var FS embed.FS
