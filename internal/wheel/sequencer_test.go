package wheel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-wheel-service/internal/domain"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recorder struct {
	frames   []domain.AngleFrame
	outcomes []domain.SpinOutcome
}

func (r *recorder) OnAngleUpdate(frame domain.AngleFrame)     { r.frames = append(r.frames, frame) }
func (r *recorder) OnSpinComplete(outcome domain.SpinOutcome) { r.outcomes = append(r.outcomes, outcome) }

func newTestSequencer(t *testing.T, seed int64) (*Sequencer, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	src := NewSource(seed)
	seq := NewSequencer(DefaultConfig(), NewWeightedSelector(src), src, rec, WithClock(clock.Now))
	return seq, clock, rec
}

func TestSequencerFullSpin(t *testing.T) {
	seq, clock, rec := newTestSequencer(t, 11)
	segs := weighted(20, 18, 22, 15, 10, 5, 5, 5)

	decision := seq.RequestSpin(segs, nil)
	require.True(t, decision.Accepted)
	assert.Equal(t, StateSpinning, seq.State())
	assert.Equal(t, 8, decision.Ticket.SegmentCount)
	assert.Greater(t, decision.Ticket.TargetAngle, decision.Ticket.StartAngle)

	last := 0.0
	for i := 0; i < 300; i++ {
		clock.Advance(16 * time.Millisecond)
		frame, active := seq.Tick()
		require.GreaterOrEqual(t, frame.Angle, last)
		last = frame.Angle
		if !active {
			break
		}
	}

	assert.Equal(t, StateIdle, seq.State())
	require.Len(t, rec.outcomes, 1)
	out := rec.outcomes[0]
	assert.Equal(t, decision.Ticket.SpinID, out.SpinID)
	assert.Equal(t, decision.Ticket.TargetAngle, out.TargetAngle)
	assert.Equal(t, decision.Ticket.TargetAngle, seq.Angle())
	assert.Equal(t, out.SegmentIndex, LandedIndex(seq.Angle(), len(segs)))
	assert.Equal(t, segs[out.SegmentIndex].Label, out.Segment.Label)

	final := rec.frames[len(rec.frames)-1]
	assert.Equal(t, 1.0, final.Progress)
	assert.Equal(t, out.TargetAngle, final.Angle)
}

func TestSequencerEasesAlongDuration(t *testing.T) {
	seq, clock, _ := newTestSequencer(t, 3)
	decision := seq.RequestSpin(uniform(8), nil)
	require.True(t, decision.Accepted)

	clock.Advance(2 * time.Second)
	frame, active := seq.Tick()
	require.True(t, active)
	assert.InDelta(t, 0.5, frame.Progress, 1e-9)
	want := decision.Ticket.StartAngle + (decision.Ticket.TargetAngle-decision.Ticket.StartAngle)*0.875
	assert.InDelta(t, want, frame.Angle, 1e-9)
}

func TestSequencerRejectsWhileSpinning(t *testing.T) {
	seq, clock, rec := newTestSequencer(t, 5)
	segs := uniform(6)

	first := seq.RequestSpin(segs, nil)
	require.True(t, first.Accepted)

	clock.Advance(time.Second)
	seq.Tick()
	angle := seq.Angle()

	gateCalled := false
	second := seq.RequestSpin(segs, func() domain.RejectReason {
		gateCalled = true
		return domain.RejectNone
	})
	assert.False(t, second.Accepted)
	assert.Equal(t, domain.RejectAlreadySpinning, second.Reason)
	assert.False(t, gateCalled)
	assert.Equal(t, angle, seq.Angle())

	clock.Advance(5 * time.Second)
	_, active := seq.Tick()
	assert.False(t, active)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, first.Ticket.SpinID, rec.outcomes[0].SpinID)
	assert.Equal(t, first.Ticket.TargetAngle, rec.outcomes[0].TargetAngle)

	// Extra ticks after completion deliver nothing.
	seq.Tick()
	assert.Len(t, rec.outcomes, 1)
}

func TestSequencerRejectsDuringResolving(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	src := NewSource(1)
	var seq *Sequencer
	var reentrant Decision
	listener := &hookListener{onComplete: func(domain.SpinOutcome) {
		reentrant = seq.RequestSpin(uniform(4), nil)
	}}
	seq = NewSequencer(DefaultConfig(), NewUniformSelector(src), src, listener, WithClock(clock.Now))

	require.True(t, seq.RequestSpin(uniform(4), nil).Accepted)
	clock.Advance(time.Minute)
	seq.Tick()

	assert.False(t, reentrant.Accepted)
	assert.Equal(t, domain.RejectAlreadySpinning, reentrant.Reason)
	assert.Equal(t, StateIdle, seq.State())
}

func TestSequencerGateRejection(t *testing.T) {
	seq, _, rec := newTestSequencer(t, 8)
	angle := seq.Angle()

	d := seq.RequestSpin(uniform(4), func() domain.RejectReason { return domain.RejectNoSpinsLeft })
	assert.False(t, d.Accepted)
	assert.Equal(t, domain.RejectNoSpinsLeft, d.Reason)
	assert.Equal(t, StateIdle, seq.State())
	assert.Equal(t, angle, seq.Angle())

	_, active := seq.Tick()
	assert.False(t, active)
	assert.Empty(t, rec.frames)
	assert.Empty(t, rec.outcomes)
}

func TestSequencerAngleNeverResets(t *testing.T) {
	seq, clock, _ := newTestSequencer(t, 21)
	prev := seq.Angle()
	for spin := 0; spin < 5; spin++ {
		d := seq.RequestSpin(uniform(8), nil)
		require.True(t, d.Accepted)
		assert.Equal(t, prev, d.Ticket.StartAngle)
		clock.Advance(10 * time.Second)
		seq.Tick()
		require.Greater(t, seq.Angle(), prev)
		prev = seq.Angle()
	}
}

func TestSequencerSettle(t *testing.T) {
	seq, clock, rec := newTestSequencer(t, 4)
	assert.False(t, seq.Settle())

	d := seq.RequestSpin(uniform(5), nil)
	require.True(t, d.Accepted)
	clock.Advance(100 * time.Millisecond)
	seq.Tick()

	assert.True(t, seq.Settle())
	assert.Equal(t, StateIdle, seq.State())
	assert.Equal(t, d.Ticket.TargetAngle, seq.Angle())
	require.Len(t, rec.outcomes, 1)
	assert.False(t, seq.Settle())
}

func TestSequencerZeroDurationCompletesOnFirstTick(t *testing.T) {
	src := NewSource(2)
	rec := &recorder{}
	seq := NewSequencer(Config{MinRotations: 1}, NewUniformSelector(src), src, rec)

	require.True(t, seq.RequestSpin(uniform(3), nil).Accepted)
	_, active := seq.Tick()
	assert.False(t, active)
	assert.Len(t, rec.outcomes, 1)
}

func TestSequencerRestoresAngle(t *testing.T) {
	src := NewSource(2)
	seq := NewSequencer(DefaultConfig(), NewUniformSelector(src), src, nil, WithStartAngle(725))
	d := seq.RequestSpin(uniform(3), nil)
	assert.Equal(t, 725.0, d.Ticket.StartAngle)
	assert.GreaterOrEqual(t, d.Ticket.TargetAngle, 725.0+3600)
}

func TestSequencerPreconditions(t *testing.T) {
	seq, _, _ := newTestSequencer(t, 1)
	assert.Panics(t, func() { seq.RequestSpin(nil, nil) })
	assert.Panics(t, func() { NewSequencer(DefaultConfig(), nil, NewSource(1), nil) })
}

func TestDriveRunsUntilComplete(t *testing.T) {
	seq, clock, rec := newTestSequencer(t, 6)
	require.True(t, seq.RequestSpin(uniform(8), nil).Accepted)

	ticks := make(chan time.Time)
	done := make(chan error, 1)
	go func() {
		done <- Drive(context.Background(), ticks, func() bool {
			clock.Advance(500 * time.Millisecond)
			_, active := seq.Tick()
			return active
		}, func() { seq.Settle() })
	}()

	for i := 0; i < 7; i++ {
		ticks <- time.Now()
	}
	require.NoError(t, <-done)
	assert.Len(t, rec.outcomes, 1)
	assert.Len(t, rec.frames, 8)
}

func TestDriveSettlesOnCancel(t *testing.T) {
	seq, _, rec := newTestSequencer(t, 6)
	require.True(t, seq.RequestSpin(uniform(8), nil).Accepted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Drive(ctx, make(chan time.Time), func() bool {
		_, active := seq.Tick()
		return active
	}, func() { seq.Settle() })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateIdle, seq.State())
	assert.Len(t, rec.outcomes, 1)
}

func TestRunFramesWithRealTicker(t *testing.T) {
	src := NewSource(9)
	rec := &recorder{}
	cfg := Config{Duration: 40 * time.Millisecond, MinRotations: 2, JitterFraction: 0.3}
	seq := NewSequencer(cfg, NewUniformSelector(src), src, rec)
	require.True(t, seq.RequestSpin(uniform(4), nil).Accepted)

	err := RunFrames(context.Background(), 5*time.Millisecond, func() bool {
		_, active := seq.Tick()
		return active
	}, func() { seq.Settle() })
	require.NoError(t, err)
	assert.Len(t, rec.outcomes, 1)
}

type hookListener struct {
	onComplete func(domain.SpinOutcome)
}

func (h *hookListener) OnAngleUpdate(domain.AngleFrame) {}

func (h *hookListener) OnSpinComplete(o domain.SpinOutcome) {
	if h.onComplete != nil {
		h.onComplete(o)
	}
}
