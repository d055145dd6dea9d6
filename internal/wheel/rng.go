package wheel

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the randomness the engine draws from. *rand.Rand satisfies it.
// Implementations are not required to be safe for concurrent use.
type Source interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// NewSource returns a seeded generator. A zero seed picks one from the clock.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// SourceFactory hands out independent sources, one per sequencer.
type SourceFactory func() Source

// SeededFactory derives a deterministic stream of sources from one seed.
// A zero seed yields clock-seeded sources.
func SeededFactory(seed int64) SourceFactory {
	if seed == 0 {
		return func() Source { return NewSource(0) }
	}
	var mu sync.Mutex
	root := rand.New(rand.NewSource(seed))
	return func() Source {
		mu.Lock()
		defer mu.Unlock()
		return rand.New(rand.NewSource(root.Int63() + 1))
	}
}

func mustSource(src Source) Source {
	if src == nil {
		panic("wheel: nil random source")
	}
	return src
}
