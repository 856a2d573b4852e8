package store

import _ "embed"

// Schema is the documents table DDL. Integration tests and the container
// manager apply it; production deployments run it as a migration.
//
//go:embed schema.sql
var Schema string
