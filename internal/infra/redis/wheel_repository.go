package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/infra/memory"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WheelRepository caches wheel definitions in Redis and falls back to a
// loader on cache miss. Each wheel is stored as one JSON blob:
//
//	SET wheel:def:{wheelID} {json} EX ttl
type WheelRepository struct {
	client *redis.Client
	loader memory.WheelLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewWheelRepository(client *redis.Client, loader memory.WheelLoader, ttl time.Duration) *WheelRepository {
	return &WheelRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *WheelRepository) GetWheel(ctx context.Context, wheelID string) (domain.Wheel, error) {
	if w, ok := r.cached(ctx, wheelID); ok {
		return w, nil
	}

	result, err, _ := r.sf.Do(wheelID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if w, ok := r.cached(ctx, wheelID); ok {
			return w, nil
		}

		w, err := r.loader.LoadWheel(ctx, wheelID)
		if err != nil {
			return domain.Wheel{}, err
		}

		if raw, err := json.Marshal(w); err == nil {
			// best-effort: a failed write only costs another loader hit
			_ = r.client.Set(ctx, r.key(wheelID), raw, r.ttlWithJitter()).Err()
		}
		return w, nil
	})
	if err != nil {
		return domain.Wheel{}, err
	}
	return result.(domain.Wheel), nil
}

// Invalidate removes the cached blob for a wheel.
func (r *WheelRepository) Invalidate(ctx context.Context, wheelID string) error {
	return r.client.Del(ctx, r.key(wheelID)).Err()
}

func (r *WheelRepository) cached(ctx context.Context, wheelID string) (domain.Wheel, bool) {
	raw, err := r.client.Get(ctx, r.key(wheelID)).Bytes()
	if err != nil {
		return domain.Wheel{}, false
	}
	var w domain.Wheel
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Wheel{}, false
	}
	return w, true
}

func (r *WheelRepository) key(wheelID string) string {
	return "wheel:def:" + wheelID
}

func (r *WheelRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
