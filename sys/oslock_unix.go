//go:build unix

package sys

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock flocks lockPath once. The lock only counts when the locked inode is
// still the one at lockPath: a holder removes the file before unlocking, and a
// waiter that wins the flock on the removed inode starts over.
func tryLock(lockPath string) (func() error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errLockHeld
		}
		return nil, err
	}

	var held, named unix.Stat_t
	if err := unix.Fstat(fd, &held); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := unix.Stat(lockPath, &named); err != nil || held.Dev != named.Dev || held.Ino != named.Ino {
		_ = f.Close()
		return nil, errLockHeld
	}

	return func() error {
		_ = os.Remove(lockPath)
		_ = unix.Flock(fd, unix.LOCK_UN)
		return f.Close()
	}, nil
}
