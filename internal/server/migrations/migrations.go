// Package migrations embeds the goose schema migrations for every SQL
// store adapter. Each dialect lives in its own directory of FS.
package migrations

import "embed"

// Directory names inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
