package postgres

import _ "embed"

// Schema is the audit outbox DDL, applied alongside the documents schema.
//
//go:embed schema.sql
var Schema string
