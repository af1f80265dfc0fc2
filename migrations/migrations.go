// Package migrations embeds the SQL schema migrations so the binary can
// migrate from any working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
