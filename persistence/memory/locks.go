// persistence/memory/locks.go

package memory

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// lockTable hands out one exclusive, context-aware hold per entity ID.
// Entries are reference counted and dropped once nobody holds or waits.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (l *lockTable) acquire(ctx context.Context, id string) error {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	if err := entry.sem.Acquire(ctx, 1); err != nil {
		l.drop(id, entry)
		return err
	}
	return nil
}

func (l *lockTable) release(id string) {
	l.mu.Lock()
	entry, ok := l.entries[id]
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.sem.Release(1)
	l.drop(id, entry)
}

func (l *lockTable) drop(id string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, id)
	}
}
