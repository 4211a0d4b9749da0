// Package scopelock serializes read-recompute-write cycles on an ordering scope
// (a board's lists or a list's tasks) within one process.
package scopelock

import (
	"fmt"
	"sort"
	"sync"
)

// Locker hands out one mutex per scope key. Entries are dropped when nobody
// holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New returns an empty Locker
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// BoardKey names the list scope of a board
func BoardKey(boardID int) string { return fmt.Sprintf("board:%d", boardID) }

// ListKey names the task scope of a list
func ListKey(listID int) string { return fmt.Sprintf("list:%d", listID) }

// Lock acquires every key in sorted order, so two callers locking overlapping
// sets cannot deadlock. Duplicate keys are locked once. The returned func
// releases them all.
func (l *Locker) Lock(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	sort.Strings(uniq)

	held := make([]*entry, 0, len(uniq))
	for _, k := range uniq {
		e := l.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(uniq[i])
			}
		})
	}
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// size is used by tests
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
