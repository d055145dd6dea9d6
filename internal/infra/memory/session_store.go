package memory

import (
	"sync"

	"spin-wheel-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[app.SessionKey]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[app.SessionKey]*app.Session),
	}
}

// GetOrCreate returns the session for key, building it with create only if
// none is stored. create runs under the store lock.
func (s *SessionStore) GetOrCreate(key app.SessionKey, create func() *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session
	}
	session := create()
	s.sessions[key] = session
	return session
}

func (s *SessionStore) Get(key app.SessionKey) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

// DeleteIfIdle drops the session only while Session.IsIdle holds: no spin in
// flight, no attached connection and no subscriber. The check and the delete
// share the store lock, so a session that a caller attaches to and then finds
// still stored cannot be dropped underneath it.
func (s *SessionStore) DeleteIfIdle(key app.SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, key)
	}
}

// Len reports how many sessions are live.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
