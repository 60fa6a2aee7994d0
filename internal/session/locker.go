package session

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker serialises work on one session. Locks for different sessions never
// block each other, and idle entries are released.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until id is free and returns the matching unlock.
func (l *Locker) Lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// Held is the number of sessions with a holder or waiter.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
