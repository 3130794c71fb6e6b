package service

import "sync"

// userLocks serializes trade-affecting mutations per user. Holding the
// lock across the whole check-then-commit sequence is what keeps two
// concurrent opens from both passing the max-open-positions and daily
// limit checks. Entries are never evicted; the map grows with the
// number of users that have ever traded in this process.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the per-user mutex and returns its release func
func (l *userLocks) Acquire(userID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
