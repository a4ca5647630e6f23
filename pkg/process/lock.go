// Package process guards a project against concurrent builds
package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock
var ErrLocked = errors.New("locked by another process")

// Lock is an exclusive advisory lock on a file that records the PID of its
// holder. The kernel drops the lock when the holder exits, so a lock file
// left behind by a dead process is acquirable again.
type Lock struct {
	path string
	fl   *flock.Flock
}

// Acquire takes the lock on the file at path, creating it when missing. The
// file's content never decides ownership: a held lock is refused even while
// its holder has not recorded a PID yet.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		if pid, err := Owner(path); err == nil {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		}
		return nil, ErrLocked
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		fl.Unlock()
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Release clears the recorded PID and drops the lock. The file stays in
// place so every process keeps locking the same inode.
func (l *Lock) Release() error {
	if err := os.Truncate(l.path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.fl.Unlock()
		return fmt.Errorf("failed to clear lock file: %w", err)
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Owner returns the PID recorded in the lock file at path
func Owner(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid lock file %s: %w", path, err)
	}
	return pid, nil
}

// IsRunning reports whether a process with the given PID exists
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
