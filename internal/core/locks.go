package core

import "sync"

// keyedLocks is a registry of mutexes keyed by resource id. Version
// appends and structural mutations on the same document serialize through
// the same key; different documents proceed fully in parallel.
//
// Entries are never evicted. The registry grows with the number of
// distinct documents touched by one process, which is bounded by the
// working set, not the corpus.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns
// the unlock function.
func (k *keyedLocks) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Folder-structure mutations (create, move, rename) share one key: cycle
// and sibling-name checks span multiple folders, so a per-folder key is
// not enough to keep check and commit atomic.
const folderStructureKey = "folder-structure"
