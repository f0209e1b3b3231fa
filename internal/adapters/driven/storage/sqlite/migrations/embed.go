// Package migrations embeds the versioned schema files for the
// SQLite blob store.
package migrations

import "embed"

// FS holds the numbered .up.sql/.down.sql pairs applied in order at
// store open.
//
//go:embed *.sql
var FS embed.FS
