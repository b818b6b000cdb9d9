package usecase

import "sync"

// sessionLocks hands out one mutex per session id so persistence of user
// turns is strictly serialized within a session while sessions stay fully
// independent of each other. Entries are reference-counted and removed when
// the last holder releases, keeping the table bounded by live sessions.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*lockEntry)}
}

// Acquire blocks until the session lock is held and returns the release func.
func (l *sessionLocks) Acquire(sessionID string) func() {
	l.mu.Lock()
	e, ok := l.locks[sessionID]
	if !ok {
		e = &lockEntry{}
		l.locks[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
