// Package migrations embeds the SQL schema so binaries and tests migrate without a working directory.
package migrations

import "embed"

// FS holds the numbered migration files
//
//go:embed *.sql
var FS embed.FS
