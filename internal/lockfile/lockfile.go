// Package lockfile provides advisory, process-wide file locking for the
// three singleton files spec.md §5 calls out as needing serialized
// read-modify-write: the compaction buffer, the audit log, and each
// spiral session file. Chronicle and Coherence writes are create-new or
// last-writer-wins and never take a lock.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/sovereign-stack/sovereign-stack/internal/sverrors"

	"github.com/gofrs/flock"
)

// Guard holds an OS-level advisory lock on path for the duration of one
// read-modify-write section.
type Guard struct {
	fl *flock.Flock
}

// Acquire blocks until the lock on path+".lock" is held. Locking a
// sibling ".lock" file rather than the data file itself means readers
// never need to open the lock to read the data file's current contents.
func Acquire(path string) (*Guard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, sverrors.Wrap(sverrors.Internal, "creating lock directory", err)
	}
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, sverrors.Wrap(sverrors.Conflict, "acquiring file lock", err)
	}
	return &Guard{fl: fl}, nil
}

// TryAcquire attempts to acquire the lock without blocking, returning
// ok=false if another holder currently owns it.
func TryAcquire(path string) (*Guard, bool, error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, sverrors.Wrap(sverrors.Conflict, "acquiring file lock", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Guard{fl: fl}, true, nil
}

// Release unlocks the guard. Safe to call once; the zero value panics.
func (g *Guard) Release() error {
	return g.fl.Unlock()
}
