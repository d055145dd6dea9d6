package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spin-wheel-service/internal/domain"
)

func TestWheelRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		WheelLoader: NewStaticWheelLoader(map[string]domain.Wheel{
			"wheel-1": sampleWheel(),
		}),
	}
	repo := NewWheelRepository(loader, time.Minute)

	if _, err := repo.GetWheel(context.Background(), "wheel-1"); err != nil {
		t.Fatalf("get wheel: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	w, err := repo.GetWheel(context.Background(), "wheel-1")
	if err != nil {
		t.Fatalf("get wheel 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
	if len(w.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(w.Segments))
	}
}

func TestWheelRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		WheelLoader: NewStaticWheelLoader(map[string]domain.Wheel{"wheel-1": sampleWheel()}),
	}
	repo := NewWheelRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetWheel(context.Background(), "wheel-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetWheel(context.Background(), "wheel-1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}

	repo.Invalidate("wheel-1")
	_, _ = repo.GetWheel(context.Background(), "wheel-1")
	if loader.count() != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.count())
	}
}

func TestWheelRepositoryUnknownWheel(t *testing.T) {
	repo := NewWheelRepository(NewStaticWheelLoader(nil), time.Minute)
	_, err := repo.GetWheel(context.Background(), "missing")
	if !errors.Is(err, domain.ErrWheelNotFound) {
		t.Fatalf("expected ErrWheelNotFound, got %v", err)
	}
}

func TestWheelRepositoryConcurrentMisses(t *testing.T) {
	loader := &countingLoader{
		WheelLoader: NewStaticWheelLoader(map[string]domain.Wheel{"wheel-1": sampleWheel()}),
	}
	repo := NewWheelRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetWheel(context.Background(), "wheel-1"); err != nil {
				t.Errorf("get wheel: %v", err)
			}
		}()
	}
	wg.Wait()
	if loader.count() < 1 {
		t.Fatalf("expected loader to be called")
	}
}

type countingLoader struct {
	WheelLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadWheel(ctx context.Context, wheelID string) (domain.Wheel, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.WheelLoader.LoadWheel(ctx, wheelID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleWheel() domain.Wheel {
	return domain.Wheel{
		ID:      "wheel-1",
		Name:    "Test Wheel",
		Variant: domain.VariantPrize,
		Segments: []domain.Segment{
			{Label: "100", Kind: domain.KindPoints, Points: 100, Weight: domain.Weight(3)},
			{Label: "JACKPOT", Kind: domain.KindJackpot, Weight: domain.Weight(1)},
			{Label: "FREE", Kind: domain.KindFreeSpins},
		},
	}
}
