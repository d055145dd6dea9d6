package wheel

import "time"

// EaseOutCubic decelerates fast-then-slow over t in [0, 1].
func EaseOutCubic(t float64) float64 {
	inv := 1 - t
	return 1 - inv*inv*inv
}

// Progress is elapsed/duration clamped to [0, 1]. A non-positive duration is
// already complete.
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	p := float64(elapsed) / float64(duration)
	if p > 1 {
		return 1
	}
	return p
}

// Interpolate returns the eased angle between start and target at progress p.
func Interpolate(start, target, p float64) float64 {
	return start + (target-start)*EaseOutCubic(p)
}
