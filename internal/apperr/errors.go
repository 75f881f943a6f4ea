// Package apperr defines the error classes shared by the store and its callers.
//
// Errors are classified rather than typed per call site: callers wrap one of
// the sentinels below and test with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation reports a missing or malformed field; it never reaches the engine.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports an identity that does not resolve to an existing row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists reports an add against an identity that already resolves.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPermissionDenied reports a notebook restriction blocking a note operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrEngine reports a statement rejected or failed by the relational engine.
	ErrEngine = errors.New("storage engine error")
	// ErrInvalidQuery reports a search query that cannot be compiled.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrAmbiguousFilter reports a self-contradictory list filter.
	ErrAmbiguousFilter = errors.New("ambiguous filter")
	// ErrStorageLocked reports that another process holds the storage file lock.
	ErrStorageLocked = errors.New("storage is locked by another process")
)
