package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored records, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrAlreadyUsed: a uniqueness slot (site+name, unit+year) is taken
// - ErrInvalidState: record in wrong state for the requested operation
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation errors (bad input, chronology violations), use
// pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
