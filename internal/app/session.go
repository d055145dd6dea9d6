package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/metrics"
	"spin-wheel-service/internal/wheel"
)

const subscriberBuffer = 32

// SessionKey identifies one player's game on one wheel.
type SessionKey struct {
	WheelID  string
	PlayerID string
}

func (k SessionKey) String() string {
	return k.WheelID + ":" + k.PlayerID
}

// Session is the live game of one player on one wheel. It owns the
// sequencer, the player's state and the event subscribers. All of them are
// guarded by mu; sequencer callbacks run with mu held.
type Session struct {
	key     SessionKey
	wheel   domain.Wheel
	rules   Rules
	now     func() time.Time
	src     wheel.Source
	logger  *zap.Logger
	metrics metrics.Recorder

	mu          sync.Mutex
	seq         *wheel.Sequencer
	state       domain.PlayerState
	subscribers map[chan domain.WheelEvent]struct{}
	cancelSpin  context.CancelFunc
	attached    int
}

type sessionDeps struct {
	rules   Rules
	spin    wheel.Config
	now     func() time.Time
	src     wheel.Source
	logger  *zap.Logger
	metrics metrics.Recorder
}

func newSession(key SessionKey, w domain.Wheel, state domain.PlayerState, deps sessionDeps) *Session {
	s := &Session{
		key:         key,
		wheel:       w,
		rules:       deps.rules,
		now:         deps.now,
		src:         deps.src,
		logger:      deps.logger.With(zap.String("wheel_id", key.WheelID), zap.String("player_id", key.PlayerID)),
		metrics:     deps.metrics,
		state:       state,
		subscribers: make(map[chan domain.WheelEvent]struct{}),
	}
	s.seq = wheel.NewSequencer(
		deps.spin,
		wheel.SelectorFor(w.Variant, deps.src),
		deps.src,
		s,
		wheel.WithClock(deps.now),
		wheel.WithStartAngle(state.WheelAngle),
	)
	return s
}

// Key returns the session's identity.
func (s *Session) Key() SessionKey {
	return s.key
}

// IsIdle reports whether nothing holds the session open: no spin is in
// flight and no connection is attached.
func (s *Session) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.State() == wheel.StateIdle && s.attached == 0 && len(s.subscribers) == 0
}

func (s *Session) attach() domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached++
	s.refillLocked()
	return s.snapshotLocked()
}

// detach drops one connection and returns how many remain.
func (s *Session) detach() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached > 0 {
		s.attached--
	}
	return s.attached
}

func (s *Session) snapshot() domain.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refillLocked()
	return s.snapshotLocked()
}

func (s *Session) refillLocked() {
	if s.wheel.Variant.IsQuiz() {
		return
	}
	if s.rules.Refill(&s.state, s.now()) {
		s.state.UpdatedAt = s.now()
		s.broadcastLocked(domain.WheelEvent{Type: domain.EventState, State: ptr(s.snapshotLocked())})
	}
}

// gateLocked is the pre-spin check. The sequencer has already refused
// AlreadySpinning before it is consulted.
func (s *Session) gateLocked() domain.RejectReason {
	if s.state.Pending != nil {
		return domain.RejectQuestionPending
	}
	if s.wheel.Variant.IsQuiz() {
		return domain.RejectNone
	}
	if s.state.SpinsLeft <= 0 {
		return domain.RejectNoSpinsLeft
	}
	if s.state.Points < s.rules.SpinCost {
		return domain.RejectInsufficientBalance
	}
	return domain.RejectNone
}

// start requests a spin and, if accepted, charges the player and returns a
// context for the frame driver.
func (s *Session) start(ctx context.Context) (domain.SpinTicket, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refillLocked()
	decision := s.seq.RequestSpin(s.wheel.Segments, s.gateLocked)
	if !decision.Accepted {
		return domain.SpinTicket{}, nil, nil, domain.Rejected(decision.Reason)
	}
	if !s.wheel.Variant.IsQuiz() {
		s.rules.Charge(&s.state)
	}
	s.state.UpdatedAt = s.now()

	ticket := decision.Ticket
	ticket.WheelID = s.wheel.ID

	driveCtx, cancel := context.WithCancel(ctx)
	s.cancelSpin = cancel
	s.broadcastLocked(domain.WheelEvent{Type: domain.EventState, State: ptr(s.snapshotLocked())})
	return ticket, driveCtx, cancel, nil
}

// drive runs the frame loop of the in-flight spin and returns the player's
// state once the outcome has been applied.
func (s *Session) drive(ctx context.Context, interval time.Duration) domain.PlayerState {
	err := wheel.RunFrames(ctx, interval, s.step, s.settle)
	if err != nil {
		s.logger.Debug("spin settled early", zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) step() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, active := s.seq.Tick()
	return active
}

func (s *Session) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.Settle()
}

// stop fast-forwards any in-flight spin so its outcome is applied now.
func (s *Session) stop() {
	s.mu.Lock()
	cancel := s.cancelSpin
	s.seq.Settle()
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// OnAngleUpdate implements wheel.Listener.
func (s *Session) OnAngleUpdate(frame domain.AngleFrame) {
	s.broadcastLocked(domain.WheelEvent{Type: domain.EventAngle, Frame: &frame})
}

// OnSpinComplete implements wheel.Listener. It applies the landing to the
// player's state and publishes the result.
func (s *Session) OnSpinComplete(outcome domain.SpinOutcome) {
	now := s.now()
	s.cancelSpin = nil
	s.state.WheelAngle = outcome.TargetAngle

	result := domain.SpinResult{Outcome: outcome}
	seg := outcome.Segment
	if s.wheel.Variant.IsQuiz() {
		q, ok := openQuestion(s.wheel, seg, s.src)
		if ok {
			view := q.View()
			result.Question = &view
			s.state.Pending = &domain.PendingQuestion{SpinID: outcome.SpinID, QuestionID: q.ID}
		}
		result.Message = questionMessage(seg, q, ok)
	} else {
		result.Award, result.Message = s.rules.SettlePrize(&s.state, seg)
	}
	s.rules.Record(&s.state, seg, result.Award, now)
	s.state.UpdatedAt = now
	result.State = s.snapshotLocked()

	s.metrics.SpinResolved(s.wheel.ID, seg.Label, result.Award)
	s.logger.Info("spin resolved",
		zap.String("spin_id", outcome.SpinID),
		zap.Int("segment", outcome.SegmentIndex),
		zap.String("label", seg.Label),
		zap.Int("award", result.Award),
	)
	s.broadcastLocked(domain.WheelEvent{Type: domain.EventResult, Result: &result})
}

func (s *Session) answer(submission domain.AnswerSubmission) (domain.AnswerResult, domain.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wheel.Variant.IsQuiz() {
		return domain.AnswerResult{}, domain.PlayerState{}, domain.ErrNotQuizWheel
	}
	pending := s.state.Pending
	if pending == nil {
		return domain.AnswerResult{}, domain.PlayerState{}, domain.ErrNoPendingQuestion
	}
	if submission.QuestionID != pending.QuestionID {
		return domain.AnswerResult{}, domain.PlayerState{}, domain.ErrQuestionNotFound
	}
	correct, points, err := scoreSubmission(s.wheel, submission)
	if err != nil {
		return domain.AnswerResult{}, domain.PlayerState{}, err
	}
	q, _ := s.wheel.Question(pending.QuestionID)
	now := s.now()
	awarded := s.rules.applyAnswer(&s.state, q, correct, points, now)
	s.state.UpdatedAt = now

	res := domain.AnswerResult{
		QuestionID: q.ID,
		Correct:    correct,
		Awarded:    awarded,
		TotalScore: s.state.Points,
	}
	s.metrics.QuizAnswered(s.wheel.ID, correct, awarded)
	s.broadcastLocked(domain.WheelEvent{Type: domain.EventAnswer, Answer: &res})
	return res, s.snapshotLocked(), nil
}

func (s *Session) subscribe() (<-chan domain.WheelEvent, func()) {
	ch := make(chan domain.WheelEvent, subscriberBuffer)

	s.mu.Lock()
	ch <- domain.WheelEvent{Type: domain.EventState, State: ptr(s.snapshotLocked())}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(event domain.WheelEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscriber: drop its oldest event so the driver never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *Session) snapshotLocked() domain.PlayerState {
	out := s.state
	out.History = append([]domain.HistoryEntry(nil), s.state.History...)
	if out.History == nil {
		out.History = []domain.HistoryEntry{}
	}
	if s.state.Bonus != nil {
		b := *s.state.Bonus
		out.Bonus = &b
	}
	if s.state.LastResult != nil {
		r := *s.state.LastResult
		out.LastResult = &r
	}
	if s.state.Pending != nil {
		p := *s.state.Pending
		out.Pending = &p
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
