package model

import "errors"

// Moderation error taxonomy. Adapters and services wrap these with context;
// callers match with errors.Is.
var (
	// ErrNotFound is returned when a referenced report or review does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyResolved is returned when resolving a report that is no longer pending.
	ErrAlreadyResolved = errors.New("report already resolved")

	// ErrMismatch is returned when a review id does not belong to the given report.
	ErrMismatch = errors.New("review does not belong to report")

	// ErrTransientStore wraps persistence failures. The whole operation may be retried;
	// no partial effects survive the failed transaction.
	ErrTransientStore = errors.New("transient store error")

	// ErrInvalidInput is returned for malformed decisions, reasons, or notes.
	ErrInvalidInput = errors.New("invalid input")
)
