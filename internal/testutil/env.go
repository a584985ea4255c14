package testutil

import (
	"os"
	"strconv"
	"strings"
	"testing"
)

// LargeTestsEnv names the variable that enables tests writing items close
// to the default size ceiling.
const LargeTestsEnv = "ARCHIV_LARGE_TESTS"

// LargeTestsEnabled reports whether LargeTestsEnv holds a true boolean.
func LargeTestsEnabled() bool {
	on, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(LargeTestsEnv)))
	return err == nil && on
}

// RequireLargeTests skips t unless large tests are enabled.
func RequireLargeTests(t testing.TB) {
	t.Helper()
	if !LargeTestsEnabled() {
		t.Skipf("set %s=1 to run", LargeTestsEnv)
	}
}
