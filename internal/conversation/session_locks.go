package conversation

import "sync"

// sessionLocks serializes turn processing per session. Two simultaneous
// requests for the same session are processed one after the other; distinct
// sessions never contend.
type sessionLocks struct {
	mu sync.Map // "org/session" -> *sync.Mutex
}

func (l *sessionLocks) lock(orgID, sessionID string) func() {
	key := orgID + "/" + sessionID
	m, _ := l.mu.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
