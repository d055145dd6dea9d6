package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"spin-wheel-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions themselves stay in process because they own a running frame
// driver; Redis only carries a liveness marker per session so other
// instances can see which players are connected.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[app.SessionKey]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[app.SessionKey]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(key app.SessionKey, create func() *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session
	}
	session := create()
	s.sessions[key] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(key), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(key app.SessionKey) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(key app.SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, key)
		_ = s.client.Del(context.Background(), s.key(key)).Err()
	}
}

// Live reports whether any instance holds a session for key.
func (s *SessionStore) Live(ctx context.Context, key app.SessionKey) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	return n > 0, err
}

func (s *SessionStore) key(key app.SessionKey) string {
	return "wheel:session:" + key.String()
}
