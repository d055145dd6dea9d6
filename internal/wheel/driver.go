package wheel

import (
	"context"
	"time"
)

// DefaultFrameInterval approximates one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Drive is the host frame loop. It calls step once per tick until step
// reports that nothing is in flight. If ctx ends first, settle is called so
// the in-flight spin still delivers its outcome, and ctx's error is returned.
func Drive(ctx context.Context, ticks <-chan time.Time, step func() bool, settle func()) error {
	if !step() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			settle()
			return ctx.Err()
		case <-ticks:
			if !step() {
				return nil
			}
		}
	}
}

// RunFrames drives step on a ticker firing every interval.
func RunFrames(ctx context.Context, interval time.Duration, step func() bool, settle func()) error {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	return Drive(ctx, ticker.C, step, settle)
}
