package weather

import (
	"errors"
	"fmt"
)

// FetchKind distinguishes retryable upstream failures from payload problems.
type FetchKind string

const (
	// FetchTransient covers timeouts, connection errors, rate limiting and
	// 5xx responses. The retry policy only retries these.
	FetchTransient FetchKind = "transient"
	// FetchInvalid covers malformed or unexpected response shapes. Retrying
	// would return the same payload, so these fail immediately.
	FetchInvalid FetchKind = "invalid"
)

// FetchError is the classified failure of a single location fetch.
type FetchError struct {
	Kind     FetchKind
	Location string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Location, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransientFetch reports whether err is a FetchError of the transient kind.
func IsTransientFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchTransient
}

// TransformKind identifies why a payload could not be coerced into the
// canonical record shape.
type TransformKind string

const (
	TransformMissingRequired TransformKind = "missing_required_field"
	TransformUnparseable     TransformKind = "unparseable"
)

// TransformError fails a single record when a required field (location
// identity, coordinates, at least one timestamp) cannot be produced. Loss of
// an optional field never raises this; it degrades to a nil value instead.
type TransformError struct {
	Kind  TransformKind
	Field string
	Err   error
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transform %s: %s: %v", e.Field, e.Kind, e.Err)
	}
	return fmt.Sprintf("transform %s: %s", e.Field, e.Kind)
}

func (e *TransformError) Unwrap() error { return e.Err }
