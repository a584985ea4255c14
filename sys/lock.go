package sys

import (
	"errors"
	"time"
)

// errLockHeld is returned by tryLock when another holder has the lock.
var errLockHeld = errors.New("lock held by another process")

const lockRetryInterval = 25 * time.Millisecond

// AcquireOSFileLock takes an exclusive advisory lock on lockPath, creating
// the file if needed, and retries until timeout elapses. The returned
// function removes the lock file and releases the lock.
func AcquireOSFileLock(lockPath string, timeout time.Duration) (func() error, error) {
	deadline := time.Now().Add(timeout)
	for {
		release, err := tryLock(lockPath)
		if !errors.Is(err, errLockHeld) {
			return release, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(lockRetryInterval)
	}
}
