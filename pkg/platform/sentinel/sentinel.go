package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored records, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a compare-and-swap lost against a concurrent writer
// - ErrInvalidState: record is in the wrong state for the requested operation
//   (e.g. soft-deleting an already tombstoned row)
// - ErrUnavailable: backing store temporarily unreachable
//
// For input validation, use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
