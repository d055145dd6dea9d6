package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spin-wheel-service/internal/domain"
)

// WheelLoader fetches wheel definitions from a backing store (config, Postgres).
type WheelLoader interface {
	LoadWheel(ctx context.Context, wheelID string) (domain.Wheel, error)
}

// WheelRepository caches wheels with TTL to avoid repeated loader hits.
type WheelRepository struct {
	loader WheelLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedWheel
}

type cachedWheel struct {
	wheel     domain.Wheel
	expiresAt time.Time
}

func NewWheelRepository(loader WheelLoader, ttl time.Duration) *WheelRepository {
	return &WheelRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedWheel),
	}
}

func (r *WheelRepository) GetWheel(ctx context.Context, wheelID string) (domain.Wheel, error) {
	if w, ok := r.cached(wheelID, r.clock()); ok {
		return w, nil
	}

	result, err, _ := r.sf.Do(wheelID, func() (interface{}, error) {
		now := r.clock()
		if w, ok := r.cached(wheelID, now); ok {
			return w, nil
		}

		w, err := r.loader.LoadWheel(ctx, wheelID)
		if err != nil {
			return domain.Wheel{}, err
		}

		r.mu.Lock()
		r.cache[wheelID] = cachedWheel{
			wheel:     w,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return w, nil
	})
	if err != nil {
		return domain.Wheel{}, err
	}
	return result.(domain.Wheel), nil
}

// Invalidate drops a cached wheel so the next read goes to the loader.
func (r *WheelRepository) Invalidate(wheelID string) {
	r.mu.Lock()
	delete(r.cache, wheelID)
	r.mu.Unlock()
}

func (r *WheelRepository) cached(wheelID string, now time.Time) (domain.Wheel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[wheelID]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Wheel{}, false
	}
	return entry.wheel, true
}

func (r *WheelRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticWheelLoader is a loader backed by an in-memory map (config wheels, tests, demos).
type StaticWheelLoader struct {
	wheels map[string]domain.Wheel
}

func NewStaticWheelLoader(wheels map[string]domain.Wheel) *StaticWheelLoader {
	return &StaticWheelLoader{wheels: wheels}
}

func (l *StaticWheelLoader) LoadWheel(_ context.Context, wheelID string) (domain.Wheel, error) {
	if w, ok := l.wheels[wheelID]; ok {
		return w, nil
	}
	return domain.Wheel{}, domain.ErrWheelNotFound
}

// IDs lists the wheels the loader knows about.
func (l *StaticWheelLoader) IDs() []string {
	ids := make([]string, 0, len(l.wheels))
	for id := range l.wheels {
		ids = append(ids, id)
	}
	return ids
}
