// Package migrations embeds the tour service schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
