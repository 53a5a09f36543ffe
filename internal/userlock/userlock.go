// Package userlock serializes read-modify-write cycles on a single user's state.
package userlock

import "sync"

// Locks hands out one mutex per chat. Entries are reference counted and
// removed once no goroutine holds or waits for them.
type Locks struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty lock table.
func New() *Locks {
	return &Locks{locks: make(map[int64]*entry)}
}

// Lock blocks until the chat's mutex is held and returns its release func.
func (l *Locks) Lock(chatID int64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[chatID]
	if !ok {
		e = &entry{}
		l.locks[chatID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, chatID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of chats currently locked or awaited.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
