//go:build !unix && !windows

package sys

// tryLock reports that this platform has no advisory file locks; CreateOutput
// then writes without one.
func tryLock(string) (func() error, error) {
	return nil, ErrOSFileLockNotSupported
}
