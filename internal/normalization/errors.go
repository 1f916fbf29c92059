package normalization

import "errors"

var (
	// ErrNoItem is returned when a record names no item and is not a global signal.
	ErrNoItem = errors.New("record has no item field")

	// ErrNoTime is returned under the strict time policy when a record has no usable timestamp.
	ErrNoTime = errors.New("record has no usable timestamp")

	// ErrNotNumeric is returned when a value cannot be coerced to a finite number.
	ErrNotNumeric = errors.New("value is not numeric")
)
