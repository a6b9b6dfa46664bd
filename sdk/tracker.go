package vocaria

import "sync"

// sessionTracker keeps the set of mounted sessions so Client.Close can
// unmount them all.
type sessionTracker struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionTracker() *sessionTracker {
	return &sessionTracker{sessions: make(map[string]*Session)}
}

// register adds a session and returns its idempotent unregister func.
func (t *sessionTracker) register(id string, s *Session) func() {
	t.mu.Lock()
	t.sessions[id] = s
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.sessions, id)
			t.mu.Unlock()
		})
	}
}

func (t *sessionTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func (t *sessionTracker) closeAll() {
	t.mu.Lock()
	live := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		live = append(live, s)
	}
	t.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
}
