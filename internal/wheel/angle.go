package wheel

import (
	"fmt"
	"math"
)

const fullTurn = 360.0

// MaxJitterFraction is the largest jitter fraction TargetAngle honours. Anything
// at or above 1 could push the stop point into a neighbouring segment.
var MaxJitterFraction = math.Nextafter(1, 0)

// SegmentWidth is the angular width of one of n equal segments.
func SegmentWidth(n int) float64 {
	return fullTurn / float64(n)
}

// SegmentCenter is the offset of segment index's center from the wheel's 0°.
func SegmentCenter(index, n int) float64 {
	w := SegmentWidth(n)
	return float64(index)*w + w/2
}

// Normalize maps any angle into [0, 360).
func Normalize(angle float64) float64 {
	a := math.Mod(angle, fullTurn)
	if a < 0 {
		a += fullTurn
	}
	return a
}

// ClampJitter forces a jitter fraction into [0, MaxJitterFraction].
func ClampJitter(fraction float64) float64 {
	if fraction < 0 || math.IsNaN(fraction) {
		return 0
	}
	if fraction > MaxJitterFraction {
		return MaxJitterFraction
	}
	return fraction
}

// TargetAngle computes the absolute rotation at which the wheel must stop so
// the fixed top pointer rests on segment index. The wheel turns clockwise by
// at least minFullRotations full turns and always moves strictly forward.
//
// It panics if n < 1 or index is outside [0, n).
func TargetAngle(current float64, index, n, minFullRotations int, jitterFraction float64, src Source) float64 {
	if n < 1 {
		panic(fmt.Sprintf("wheel: segment count %d < 1", n))
	}
	if index < 0 || index >= n {
		panic(fmt.Sprintf("wheel: segment index %d out of range [0,%d)", index, n))
	}
	if minFullRotations < 0 {
		minFullRotations = 0
	}

	w := SegmentWidth(n)
	jf := ClampJitter(jitterFraction)
	jitter := 0.0
	if jf > 0 {
		jitter = (mustSource(src).Float64() - 0.5) * w * jf
	}

	desired := (fullTurn - SegmentCenter(index, n)) + jitter
	delta := desired - Normalize(current)
	if delta < 0 {
		delta += fullTurn
	}

	advance := float64(minFullRotations)*fullTurn + delta
	if advance <= 0 {
		advance = fullTurn
	}
	return current + advance
}

// LandedIndex reads back which segment sits under the pointer when the wheel
// rests at angle.
func LandedIndex(angle float64, n int) int {
	if n < 1 {
		panic(fmt.Sprintf("wheel: segment count %d < 1", n))
	}
	under := Normalize(fullTurn - Normalize(angle))
	idx := int(under / SegmentWidth(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
