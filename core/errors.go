package core

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the archive codec.
var (
	// ErrMagicMissing is returned when the input does not start with an
	// archive header or a recognised outer compression layer.
	ErrMagicMissing = errors.New("this isn't the right type of file for us")

	// ErrMagicUnrecognised is returned when the archive magic is present but
	// the kind byte is unknown.
	ErrMagicUnrecognised = errors.New("this looks like the right kind of file, but uses features we can't handle")

	// ErrInvalidItem is returned when an item exceeds the configured limits.
	ErrInvalidItem = errors.New("an item exceeded the specified limits")

	// ErrAPIMisuse is returned when the reader or writer is used out of order,
	// e.g. a plain-mode item was abandoned before it was fully read.
	ErrAPIMisuse = errors.New("archive used out of order")

	// ErrLengthOverflow is returned when 64-bit length arithmetic would overflow.
	ErrLengthOverflow = errors.New("overflow during a 64-bit math operation")

	// ErrDictionaryReleased is returned when building a compressor from a
	// prepared dictionary after Release.
	ErrDictionaryReleased = errors.New("prepared dictionary already released")
)

// InvalidItemError describes an item length rejected by a reader or writer.
type InvalidItemError struct {
	Length uint64 // The declared or produced length
	Limit  uint64 // The ceiling it was checked against
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("%v: length %d, limit %d", ErrInvalidItem, e.Length, e.Limit)
}

// Unwrap allows errors.Is(err, ErrInvalidItem).
func (e *InvalidItemError) Unwrap() error {
	return ErrInvalidItem
}

// IsInvalidItem checks if an error is an InvalidItemError.
func IsInvalidItem(err error) bool {
	var invalid *InvalidItemError
	return errors.As(err, &invalid)
}
