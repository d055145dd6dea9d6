package wheel

import (
	"fmt"

	"spin-wheel-service/internal/domain"
)

// Selector picks the index of one segment. Implementations panic on an empty list.
type Selector interface {
	Select(segments []domain.Segment) int
}

// WeightedSelector samples proportionally to each segment's weight.
type WeightedSelector struct {
	src Source
}

func NewWeightedSelector(src Source) *WeightedSelector {
	return &WeightedSelector{src: mustSource(src)}
}

// Select draws r in [0, total) and walks the segments in order, returning the
// first one whose cumulative weight exceeds r. If drift exhausts the walk the
// first segment is returned.
func (s *WeightedSelector) Select(segments []domain.Segment) int {
	requireSegments(segments)

	total := 0.0
	for i, seg := range segments {
		w := seg.EffectiveWeight()
		if w < 0 {
			panic(fmt.Sprintf("wheel: segment %d has negative weight %v", i, w))
		}
		total += w
	}

	r := s.src.Float64() * total
	cumulative := 0.0
	for i, seg := range segments {
		cumulative += seg.EffectiveWeight()
		if r < cumulative {
			return i
		}
	}
	return 0
}

// UniformSelector ignores weights and picks every segment with probability 1/n.
type UniformSelector struct {
	src Source
}

func NewUniformSelector(src Source) *UniformSelector {
	return &UniformSelector{src: mustSource(src)}
}

func (s *UniformSelector) Select(segments []domain.Segment) int {
	requireSegments(segments)
	return s.src.Intn(len(segments))
}

// SelectorFor returns the selector a wheel variant spins with: weighted for
// prize wheels, uniform for the quiz wheels.
func SelectorFor(variant domain.Variant, src Source) Selector {
	if variant.IsQuiz() {
		return NewUniformSelector(src)
	}
	return NewWeightedSelector(src)
}

// SelectSegment runs sel and returns the chosen segment itself.
func SelectSegment(sel Selector, segments []domain.Segment) domain.Segment {
	return segments[sel.Select(segments)]
}

func requireSegments(segments []domain.Segment) {
	if len(segments) == 0 {
		panic("wheel: select from empty segment list")
	}
}
