//go:build windows

package sys

import (
	"errors"
	"os"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/windows"
)

// tryLock locks the first byte of lockPath with LockFileEx. The file cannot
// be removed while another handle has it open, so release closes before it
// removes and a failed removal is ignored.
func tryLock(lockPath string) (func() error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	h := windows.Handle(f.Fd())
	ov := new(windows.Overlapped)
	err = windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ov)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, errLockHeld
		}
		return nil, err
	}
	return func() error {
		unlockErr := windows.UnlockFileEx(h, 0, 1, 0, ov)
		closeErr := f.Close()
		_ = os.Remove(lockPath)
		return multierror.Append(unlockErr, closeErr).ErrorOrNil()
	}, nil
}
