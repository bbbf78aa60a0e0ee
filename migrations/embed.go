// Package migrations embeds the numbered SQL schema files.
package migrations

import "embed"

// Files holds NNN_name.sql migrations, applied in version order
//
//go:embed *.sql
var Files embed.FS
