package bnet

import (
	"sync"
)

// SessionRegistry tracks every live session so shutdown can close them
// all. Thread-safe via sync.Map for read-mostly traffic.
type SessionRegistry struct {
	sessions sync.Map // map[string]*Session, keyed by session trace id
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

// Add registers a session under its trace id.
func (r *SessionRegistry) Add(s *Session) {
	r.sessions.Store(s.traceID.String(), s)
}

// Remove drops a session from the registry.
func (r *SessionRegistry) Remove(s *Session) {
	r.sessions.Delete(s.traceID.String())
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	count := 0
	r.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// CloseAll closes every registered session. Used at shutdown after the
// acceptor has stopped.
func (r *SessionRegistry) CloseAll() {
	r.sessions.Range(func(key, value any) bool {
		value.(*Session).Close()
		r.sessions.Delete(key)
		return true
	})
}
