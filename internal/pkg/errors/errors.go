package errors

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid")
	ErrConflict    = errors.New("conflict")
	ErrTooMany     = errors.New("too many requests")
	ErrInternal    = errors.New("internal")
	ErrUnavailable = errors.New("unavailable")
	// ErrSchema marks schema validation failures. These are fatal and are
	// raised before any network I/O happens.
	ErrSchema = errors.New("invalid schema")
	// ErrTransient marks failures worth retrying (rate limits, transport).
	ErrTransient = errors.New("transient")
	// ErrGeneration marks upstream generation failures. The turn that hit
	// one is reported failed and leaves no trace in history.
	ErrGeneration = errors.New("generation failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsSchema(err error) bool {
	return errors.Is(err, ErrSchema)
}
