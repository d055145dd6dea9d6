package wheel

import (
	"time"

	"github.com/google/uuid"

	"spin-wheel-service/internal/domain"
)

// State is the sequencer's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateSpinning
	StateResolving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpinning:
		return "spinning"
	case StateResolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// Config holds the animation parameters of a spin.
type Config struct {
	Duration       time.Duration
	MinRotations   int
	JitterFraction float64
}

// DefaultConfig matches the browser widget: 4s, ten full turns, 30% jitter.
func DefaultConfig() Config {
	return Config{
		Duration:       4 * time.Second,
		MinRotations:   10,
		JitterFraction: 0.3,
	}
}

// Listener receives the sequencer's outbound signals. Both methods are called
// synchronously from Tick or Settle.
type Listener interface {
	OnAngleUpdate(frame domain.AngleFrame)
	OnSpinComplete(outcome domain.SpinOutcome)
}

// Gate is the caller's precondition check. It returns RejectNone to allow the spin.
type Gate func() domain.RejectReason

// Decision is the answer to a spin request.
type Decision struct {
	Accepted bool
	Reason   domain.RejectReason
	Ticket   domain.SpinTicket
}

type activeSpin struct {
	id        string
	segments  []domain.Segment
	index     int
	start     float64
	target    float64
	startedAt time.Time
}

// Sequencer drives one wheel through Idle -> Spinning -> Resolving -> Idle.
// It owns the wheel angle and is not safe for concurrent use; callers
// serialise access.
type Sequencer struct {
	cfg      Config
	selector Selector
	src      Source
	listener Listener
	now      func() time.Time
	newID    func() string

	state State
	angle float64
	spin  *activeSpin
}

// SequencerOption customises a Sequencer.
type SequencerOption func(*Sequencer)

// WithClock injects the time source used for progress.
func WithClock(now func() time.Time) SequencerOption {
	return func(s *Sequencer) { s.now = now }
}

// WithStartAngle restores a resting angle from a previous session.
func WithStartAngle(angle float64) SequencerOption {
	return func(s *Sequencer) { s.angle = angle }
}

// WithIDGenerator overrides spin ID generation.
func WithIDGenerator(newID func() string) SequencerOption {
	return func(s *Sequencer) { s.newID = newID }
}

func NewSequencer(cfg Config, selector Selector, src Source, listener Listener, opts ...SequencerOption) *Sequencer {
	if selector == nil {
		panic("wheel: nil selector")
	}
	if listener == nil {
		listener = nopListener{}
	}
	s := &Sequencer{
		cfg:      cfg,
		selector: selector,
		src:      mustSource(src),
		listener: listener,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle position.
func (s *Sequencer) State() State {
	return s.state
}

// Angle is the wheel's current absolute rotation in degrees.
func (s *Sequencer) Angle() float64 {
	return s.angle
}

// RequestSpin starts a spin over segments if the sequencer is idle and gate
// allows it. A rejected request leaves the sequencer untouched.
//
// segments must be non-empty; an empty list panics.
func (s *Sequencer) RequestSpin(segments []domain.Segment, gate Gate) Decision {
	if s.state != StateIdle {
		return Decision{Reason: domain.RejectAlreadySpinning}
	}
	requireSegments(segments)
	if gate != nil {
		if reason := gate(); reason != domain.RejectNone {
			return Decision{Reason: reason}
		}
	}

	frozen := make([]domain.Segment, len(segments))
	copy(frozen, segments)

	index := s.selector.Select(frozen)
	target := TargetAngle(s.angle, index, len(frozen), s.cfg.MinRotations, s.cfg.JitterFraction, s.src)
	spin := &activeSpin{
		id:        s.newID(),
		segments:  frozen,
		index:     index,
		start:     s.angle,
		target:    target,
		startedAt: s.now(),
	}
	s.spin = spin
	s.state = StateSpinning

	return Decision{
		Accepted: true,
		Ticket: domain.SpinTicket{
			SpinID:       spin.id,
			StartAngle:   spin.start,
			TargetAngle:  spin.target,
			Duration:     s.cfg.Duration,
			SegmentCount: len(frozen),
		},
	}
}

// Tick advances the in-flight spin to the current time and publishes the
// angle. It reports whether the spin is still running afterwards. When the
// duration has elapsed the outcome is delivered and the sequencer is idle
// again before Tick returns.
func (s *Sequencer) Tick() (domain.AngleFrame, bool) {
	if s.state != StateSpinning || s.spin == nil {
		return domain.AngleFrame{Angle: s.angle}, false
	}
	now := s.now()
	p := Progress(now.Sub(s.spin.startedAt), s.cfg.Duration)
	if p >= 1 {
		return s.finish(now), false
	}

	s.angle = Interpolate(s.spin.start, s.spin.target, p)
	frame := domain.AngleFrame{SpinID: s.spin.id, Angle: s.angle, Progress: p}
	s.listener.OnAngleUpdate(frame)
	return frame, true
}

// Settle completes an in-flight spin immediately, landing on its target and
// delivering the outcome. It reports whether there was a spin to settle.
func (s *Sequencer) Settle() bool {
	if s.state != StateSpinning || s.spin == nil {
		return false
	}
	s.finish(s.now())
	return true
}

func (s *Sequencer) finish(now time.Time) domain.AngleFrame {
	spin := s.spin
	s.angle = spin.target
	frame := domain.AngleFrame{SpinID: spin.id, Angle: s.angle, Progress: 1}
	s.listener.OnAngleUpdate(frame)

	s.state = StateResolving
	s.spin = nil
	s.listener.OnSpinComplete(domain.SpinOutcome{
		SpinID:       spin.id,
		SegmentIndex: spin.index,
		Segment:      spin.segments[spin.index],
		StartAngle:   spin.start,
		TargetAngle:  spin.target,
		StartedAt:    spin.startedAt,
		FinishedAt:   now,
	})
	s.state = StateIdle
	return frame
}

type nopListener struct{}

func (nopListener) OnAngleUpdate(domain.AngleFrame)   {}
func (nopListener) OnSpinComplete(domain.SpinOutcome) {}
