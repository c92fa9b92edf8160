// Package migrations embeds the SQL files applied at store startup.
package migrations

import "embed"

// FS holds the versioned migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
