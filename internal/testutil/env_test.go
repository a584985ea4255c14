package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLargeTestsEnabled(t *testing.T) {
	testCases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{" TRUE ", true},
		{"false", false},
		{"bogus", false},
		{"", false},
	}
	for _, tc := range testCases {
		t.Setenv(LargeTestsEnv, tc.value)
		assert.Equal(t, tc.want, LargeTestsEnabled(), "%q", tc.value)
	}
}
