package cleaner

import (
	"slices"
	"sync"

	"github.com/hupe1980/indexlib/version"
)

// ReaderTracker counts the readers holding each version.
// It is safe for concurrent use.
type ReaderTracker struct {
	mu   sync.Mutex
	refs map[version.VersionID]int
}

// NewReaderTracker returns an empty tracker.
func NewReaderTracker() *ReaderTracker {
	return &ReaderTracker{refs: make(map[version.VersionID]int)}
}

// Acquire registers a reader of version id.
func (t *ReaderTracker) Acquire(id version.VersionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refs[id]++
}

// Release unregisters a reader of version id.
func (t *ReaderTracker) Release(id version.VersionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs[id] <= 1 {
		delete(t.refs, id)
		return
	}
	t.refs[id]--
}

// InUse reports whether version id has readers.
func (t *ReaderTracker) InUse(id version.VersionID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refs[id] > 0
}

// Versions returns the versions with readers, ascending.
func (t *ReaderTracker) Versions() []version.VersionID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]version.VersionID, 0, len(t.refs))
	for id := range t.refs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
