// Package migrations embeds the schema so the migrate binary ships without
// loose SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
