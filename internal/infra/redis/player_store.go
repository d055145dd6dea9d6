package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spin-wheel-service/internal/domain"
)

// PlayerStore keeps player state as a JSON blob per (wheel, player):
//
//	SET wheel:player:{wheelID}:{playerID} {json} EX ttl
//
// A zero ttl keeps the state forever.
type PlayerStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlayerStore(client *redis.Client, ttl time.Duration) *PlayerStore {
	return &PlayerStore{client: client, ttl: ttl}
}

func (s *PlayerStore) Load(ctx context.Context, wheelID, playerID string) (domain.PlayerState, bool, error) {
	raw, err := s.client.Get(ctx, s.key(wheelID, playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.PlayerState{}, false, nil
	}
	if err != nil {
		return domain.PlayerState{}, false, fmt.Errorf("load player: %w", err)
	}
	var state domain.PlayerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.PlayerState{}, false, fmt.Errorf("unmarshal player: %w", err)
	}
	return state, true, nil
}

func (s *PlayerStore) Save(ctx context.Context, state domain.PlayerState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.WheelID, state.PlayerID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

func (s *PlayerStore) key(wheelID, playerID string) string {
	return "wheel:player:" + wheelID + ":" + playerID
}
