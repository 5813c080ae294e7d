// Package db embeds the schema applied at startup.
package db

import _ "embed"

//go:embed migrations/001_schema.sql
var Schema string
