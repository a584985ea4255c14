package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidItemError(t *testing.T) {
	err := error(&InvalidItemError{Length: 4096, Limit: 1024})

	assert.True(t, errors.Is(err, ErrInvalidItem))
	assert.True(t, IsInvalidItem(err))
	assert.Contains(t, err.Error(), "length 4096")
	assert.Contains(t, err.Error(), "limit 1024")

	wrapped := fmt.Errorf("reading item 3: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidItem))
	assert.True(t, IsInvalidItem(wrapped))

	var target *InvalidItemError
	if assert.True(t, errors.As(wrapped, &target)) {
		assert.Equal(t, uint64(4096), target.Length)
	}

	assert.False(t, IsInvalidItem(ErrInvalidItem), "the bare sentinel carries no lengths")
	assert.False(t, IsInvalidItem(ErrAPIMisuse))
	assert.False(t, IsInvalidItem(nil))
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{ErrMagicMissing, ErrMagicUnrecognised, ErrInvalidItem, ErrAPIMisuse, ErrLengthOverflow, ErrDictionaryReleased}
	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}
