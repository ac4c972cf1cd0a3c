// Package lock serializes twig invocations with a file lock. The engine
// core is deliberately lock-free; callers take this lock around a pass so
// concurrent invocations queue instead of interleave.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Gii4667/twig/internal/constants"
	"github.com/Gii4667/twig/internal/state"
)

// DefaultPath returns the lock file location in the twig state directory.
func DefaultPath() (string, error) {
	dir, err := state.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.LockFileName), nil
}

// Acquire takes the invocation lock, waiting up to constants.LockTimeout.
// The caller must Release the returned lock.
func Acquire(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path)

	ctx, cancel := context.WithTimeout(context.Background(), constants.LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, constants.LockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another twig invocation is in progress (lock held: %s)", path)
	}
	return fl, nil
}

// Release drops the lock. The lock file itself is left in place: deleting
// it would let a late acquirer lock a removed inode and defeat mutual
// exclusion.
func Release(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}
