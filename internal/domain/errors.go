package domain

import "errors"

var (
	// ErrInvalidSettings reports a malformed SourceSpec, caught by validation
	// before any storage I/O happens.
	ErrInvalidSettings = errors.New("invalid source settings")

	// ErrSourceUnavailable reports that a source's storage location could not
	// be opened or read. Fatal for that source, never for the whole run.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrVariableNotFound reports a requested variable absent from a source's
	// vocabulary or storage contents.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrColumnCollision reports two sources contributing the same non-key
	// column name at assembly time. The join is ambiguous and must fail.
	ErrColumnCollision = errors.New("column collision")
)
