package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"spin-wheel-service/internal/domain"
)

// PlayerStore keeps player state in process, expiring idle players after
// ttl. A zero ttl keeps them until restart.
type PlayerStore struct {
	cache *cache.Cache
}

func NewPlayerStore(ttl time.Duration) *PlayerStore {
	if ttl <= 0 {
		return &PlayerStore{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &PlayerStore{cache: cache.New(ttl, 2*ttl)}
}

func (s *PlayerStore) Load(_ context.Context, wheelID, playerID string) (domain.PlayerState, bool, error) {
	v, ok := s.cache.Get(playerKey(wheelID, playerID))
	if !ok {
		return domain.PlayerState{}, false, nil
	}
	state := v.(domain.PlayerState)
	state.History = append([]domain.HistoryEntry(nil), state.History...)
	return state, true, nil
}

func (s *PlayerStore) Save(_ context.Context, state domain.PlayerState) error {
	state.History = append([]domain.HistoryEntry(nil), state.History...)
	s.cache.SetDefault(playerKey(state.WheelID, state.PlayerID), state)
	return nil
}

func playerKey(wheelID, playerID string) string {
	return wheelID + ":" + playerID
}
