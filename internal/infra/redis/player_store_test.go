package redis

import (
	"context"
	"testing"
	"time"

	"spin-wheel-service/internal/domain"
)

func TestPlayerStoreRoundTrip(t *testing.T) {
	mr := runMiniredis(t)
	store := NewPlayerStore(newClient(mr), time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, "wheel-1", "p1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	state := domain.PlayerState{
		WheelID:      "wheel-1",
		PlayerID:     "p1",
		Points:       1900,
		SpinsLeft:    2,
		HighestWin:   1000,
		Bonus:        &domain.Bonus{Type: domain.KindMultiplier, Multiplier: 2, Remaining: 1},
		WheelAngle:   7517.25,
		History:      []domain.HistoryEntry{{ID: "h1", Label: "JACKPOT", Kind: domain.KindJackpot, Award: 1000, At: at}},
		LastRefillAt: at,
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("wheel:player:wheel-1:p1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	got, ok, err := store.Load(ctx, "wheel-1", "p1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Points != 1900 || got.WheelAngle != 7517.25 || got.Bonus == nil || got.Bonus.Remaining != 1 {
		t.Fatalf("unexpected state %+v", got)
	}
	if len(got.History) != 1 || !got.History[0].At.Equal(at) {
		t.Fatalf("unexpected history %+v", got.History)
	}
}

func TestPlayerStoreCorruptBlob(t *testing.T) {
	mr := runMiniredis(t)
	store := NewPlayerStore(newClient(mr), 0)
	if err := mr.Set("wheel:player:wheel-1:p1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.Load(context.Background(), "wheel-1", "p1"); err == nil {
		t.Fatalf("expected decode error")
	}
}
