// Package changemap holds the per-path change counts accumulated while
// diffing commit ancestry.
package changemap

import "sync"

// Map counts content changes per absolute slash-delimited path.
// Directory paths carry a trailing separator; "/" is the repository
// root. Increments are commutative, so concurrent diffs may merge their
// results in any order. Counts are never decremented.
type Map struct {
	mu     sync.Mutex
	counts map[string]int
}

// New creates an empty change map
func New() *Map {
	return &Map{counts: make(map[string]int)}
}

// Increment adds one change to a single path
func (m *Map) Increment(path string) {
	m.mu.Lock()
	m.counts[path]++
	m.mu.Unlock()
}

// IncrementAll adds one change to every given path under a single
// acquisition of the lock.
func (m *Map) IncrementAll(paths []string) {
	m.mu.Lock()
	for _, path := range paths {
		m.counts[path]++
	}
	m.mu.Unlock()
}

// Count returns the change count recorded for a path, zero if none
func (m *Map) Count(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[path]
}

// Len returns the number of distinct counted paths
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counts)
}

// Snapshot returns a copy of the accumulated counts
func (m *Map) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make(map[string]int, len(m.counts))
	for path, count := range m.counts {
		snapshot[path] = count
	}
	return snapshot
}
