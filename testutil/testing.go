package testutil

import (
	"runtime"
	"testing"
)

// SkipUnlessUnix skips tests that run the POSIX shell fixtures.
func SkipUnlessUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test requires a POSIX shell")
	}
}
