// Package sys holds file system helpers for the archiv tool: advisory locks
// on output paths and atomic replacement of output files.
package sys

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrOSFileLockNotSupported is returned where the platform has no advisory
// file locks. CreateOutput then proceeds without a lock.
var ErrOSFileLockNotSupported = errors.New("OS file locking not supported on this platform")

// DefaultLockTimeout bounds how long CreateOutput waits for another process
// writing the same target.
const DefaultLockTimeout = 5 * time.Second

// OutputFile is a temporary file next to its target. Commit replaces the
// target with it; Abort removes it. Readers of the target never observe a
// partially written file.
type OutputFile struct {
	*os.File
	target  string
	perm    os.FileMode
	release func() error
	done    bool
}

// CreateOutput locks target and opens a temporary file in the same directory.
func CreateOutput(target string, perm os.FileMode, lockTimeout time.Duration) (*OutputFile, error) {
	release, err := AcquireOSFileLock(target+".lock", lockTimeout)
	if errors.Is(err, ErrOSFileLockNotSupported) {
		release, err = func() error { return nil }, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", target, err)
	}
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		_ = release()
		return nil, fmt.Errorf("failed to create temporary output: %w", err)
	}
	return &OutputFile{File: f, target: target, perm: perm, release: release}, nil
}

// Target returns the path the file is committed to.
func (o *OutputFile) Target() string {
	return o.target
}

// Commit syncs the temporary file and renames it over the target.
func (o *OutputFile) Commit() error {
	if o.done {
		return nil
	}
	o.done = true
	defer o.release()

	tmp := o.File.Name()
	if err := o.File.Chmod(o.perm); err != nil {
		o.discard()
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := o.File.Sync(); err != nil {
		o.discard()
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err := o.File.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := Rename(tmp, o.target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Abort removes the temporary file and leaves the target untouched. It is a
// no-op after Commit.
func (o *OutputFile) Abort() error {
	if o.done {
		return nil
	}
	o.done = true
	defer o.release()
	o.discard()
	return nil
}

func (o *OutputFile) discard() {
	_ = o.File.Close()
	_ = os.Remove(o.File.Name())
}

// WriteFile writes data to name through CreateOutput.
func WriteFile(name string, data []byte, perm os.FileMode) error {
	out, err := CreateOutput(name, perm, DefaultLockTimeout)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		_ = out.Abort()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return out.Commit()
}

var renameImpl = os.Rename

// Rename moves oldpath to newpath, falling back to copy and remove when the
// rename itself fails (e.g. across devices).
func Rename(oldpath, newpath string) error {
	err := renameImpl(oldpath, newpath)
	if err == nil {
		return nil
	}
	if cerr := copyFile(oldpath, newpath); cerr != nil {
		return fmt.Errorf("failed to rename %s: %w (copy fallback: %v)", oldpath, err, cerr)
	}
	return os.Remove(oldpath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
