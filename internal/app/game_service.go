package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/metrics"
	"spin-wheel-service/internal/wheel"
)

// WheelRepository loads wheel definitions (from cache/backing store).
type WheelRepository interface {
	GetWheel(ctx context.Context, wheelID string) (domain.Wheel, error)
}

// PlayerStore persists player state between sessions. It is best effort:
// a failed Save never fails a game operation.
type PlayerStore interface {
	// Load returns the stored state and whether one existed.
	Load(ctx context.Context, wheelID, playerID string) (domain.PlayerState, bool, error)
	Save(ctx context.Context, state domain.PlayerState) error
}

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(key SessionKey, create func() *Session) *Session
	Get(key SessionKey) (*Session, bool)
	DeleteIfIdle(key SessionKey)
}

// GameService contains the spin-the-wheel use cases.
type GameService struct {
	wheels   WheelRepository
	players  PlayerStore
	sessions SessionRepository

	rules         Rules
	spin          wheel.Config
	frameInterval time.Duration
	now           func() time.Time
	sources       wheel.SourceFactory
	logger        *zap.Logger
	metrics       metrics.Recorder

	drivers sync.WaitGroup
}

// Option customises a GameService.
type Option func(*GameService)

func WithRules(r Rules) Option {
	return func(s *GameService) { s.rules = r.Normalize() }
}

func WithSpinConfig(cfg wheel.Config) Option {
	return func(s *GameService) { s.spin = cfg }
}

func WithFrameInterval(d time.Duration) Option {
	return func(s *GameService) { s.frameInterval = d }
}

// WithClock is used by tests for deterministic timestamps and progress.
func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

func WithSourceFactory(f wheel.SourceFactory) Option {
	return func(s *GameService) { s.sources = f }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *GameService) { s.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *GameService) { s.metrics = m }
}

func NewGameService(wheels WheelRepository, players PlayerStore, sessions SessionRepository, opts ...Option) *GameService {
	s := &GameService{
		wheels:        wheels,
		players:       players,
		sessions:      sessions,
		rules:         DefaultRules(),
		spin:          wheel.DefaultConfig(),
		frameInterval: wheel.DefaultFrameInterval,
		now:           time.Now,
		sources:       wheel.SeededFactory(0),
		logger:        zap.NewNop(),
		metrics:       metrics.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession is exported for infrastructure layers that need to seed sessions.
// It uses the default rules and animation settings.
func NewSession(key SessionKey, w domain.Wheel, state domain.PlayerState) *Session {
	return newSession(key, w, state, sessionDeps{
		rules:   DefaultRules(),
		spin:    wheel.DefaultConfig(),
		now:     time.Now,
		src:     wheel.NewSource(0),
		logger:  zap.NewNop(),
		metrics: metrics.Nop{},
	})
}

// Wheel returns the definition of a wheel.
func (s *GameService) Wheel(ctx context.Context, wheelID string) (domain.Wheel, error) {
	return s.wheels.GetWheel(ctx, wheelID)
}

// Join attaches a player to a wheel, restoring their saved state or starting
// a fresh one.
func (s *GameService) Join(ctx context.Context, wheelID, playerID string) (domain.PlayerState, error) {
	key := SessionKey{WheelID: wheelID, PlayerID: playerID}
	for {
		session, err := s.session(ctx, wheelID, playerID)
		if err != nil {
			return domain.PlayerState{}, err
		}
		state := session.attach()
		// A concurrent Leave may have dropped the session between lookup and
		// attach. Once attached it can no longer be dropped, so a session
		// still in the store is safe to keep.
		if cur, ok := s.sessions.Get(key); ok && cur == session {
			s.logger.Info("player joined", zap.String("wheel_id", wheelID), zap.String("player_id", playerID))
			return state, nil
		}
		session.detach()
	}
}

// Spin starts a spin for a joined player. The returned ticket describes the
// animation; the outcome arrives on Subscribe once the frame driver finishes.
// A refused spin returns a *domain.RejectionError and changes nothing.
//
// The frame driver is bound to ctx: if ctx ends mid-spin the spin is settled
// immediately and its outcome still applied.
func (s *GameService) Spin(ctx context.Context, wheelID, playerID string) (domain.SpinTicket, error) {
	session, ok := s.sessions.Get(SessionKey{WheelID: wheelID, PlayerID: playerID})
	if !ok {
		return domain.SpinTicket{}, domain.ErrSessionNotFound
	}

	ticket, driveCtx, cancel, err := session.start(ctx)
	if err != nil {
		reason := domain.ReasonOf(err)
		s.metrics.SpinRejected(wheelID, string(reason))
		s.logger.Debug("spin rejected",
			zap.String("wheel_id", wheelID),
			zap.String("player_id", playerID),
			zap.String("reason", string(reason)),
		)
		return domain.SpinTicket{}, err
	}
	s.metrics.SpinAccepted(wheelID)

	s.drivers.Add(1)
	go func() {
		defer s.drivers.Done()
		defer cancel()
		state := session.drive(driveCtx, s.frameInterval)
		s.persist(context.WithoutCancel(ctx), state)
	}()
	return ticket, nil
}

// Answer scores the answer to the question opened by the player's last quiz landing.
func (s *GameService) Answer(ctx context.Context, wheelID, playerID string, submission domain.AnswerSubmission) (domain.AnswerResult, error) {
	session, ok := s.sessions.Get(SessionKey{WheelID: wheelID, PlayerID: playerID})
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	res, state, err := session.answer(submission)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	s.persist(ctx, state)
	return res, nil
}

// Subscribe returns a channel that receives angle frames, results and state
// updates for the player's wheel, starting with a state snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, wheelID, playerID string) (<-chan domain.WheelEvent, func(), error) {
	session, ok := s.sessions.Get(SessionKey{WheelID: wheelID, PlayerID: playerID})
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// State returns the player's current state on a wheel, whether or not they
// are connected.
func (s *GameService) State(ctx context.Context, wheelID, playerID string) (domain.PlayerState, error) {
	if session, ok := s.sessions.Get(SessionKey{WheelID: wheelID, PlayerID: playerID}); ok {
		return session.snapshot(), nil
	}
	w, err := s.wheels.GetWheel(ctx, wheelID)
	if err != nil {
		return domain.PlayerState{}, err
	}
	state := s.loadState(ctx, w, playerID)
	if !w.Variant.IsQuiz() {
		s.rules.Refill(&state, s.now())
	}
	return state, nil
}

// Leave detaches one of the player's connections. When the last one leaves,
// an in-flight spin is settled so its outcome is kept. The state is then
// saved and the session dropped once idle.
func (s *GameService) Leave(ctx context.Context, wheelID, playerID string) {
	key := SessionKey{WheelID: wheelID, PlayerID: playerID}
	session, ok := s.sessions.Get(key)
	if !ok {
		return
	}
	// Another connection for the same player keeps the spin running.
	if session.detach() == 0 {
		session.stop()
	}
	s.persist(context.WithoutCancel(ctx), session.snapshot())
	s.sessions.DeleteIfIdle(key)
	s.logger.Info("player left", zap.String("wheel_id", wheelID), zap.String("player_id", playerID))
}

// Wait blocks until every running frame driver has finished.
func (s *GameService) Wait() {
	s.drivers.Wait()
}

func (s *GameService) session(ctx context.Context, wheelID, playerID string) (*Session, error) {
	key := SessionKey{WheelID: wheelID, PlayerID: playerID}
	if session, ok := s.sessions.Get(key); ok {
		return session, nil
	}
	// Users cannot join unknown wheels.
	w, err := s.wheels.GetWheel(ctx, wheelID)
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	state := s.loadState(ctx, w, playerID)
	return s.sessions.GetOrCreate(key, func() *Session {
		return newSession(key, w, state, sessionDeps{
			rules:   s.rules,
			spin:    s.spin,
			now:     s.now,
			src:     s.sources(),
			logger:  s.logger,
			metrics: s.metrics,
		})
	}), nil
}

func (s *GameService) loadState(ctx context.Context, w domain.Wheel, playerID string) domain.PlayerState {
	state, ok, err := s.players.Load(ctx, w.ID, playerID)
	if err != nil {
		s.logger.Warn("load player state", zap.String("wheel_id", w.ID), zap.String("player_id", playerID), zap.Error(err))
	}
	if err != nil || !ok {
		return s.rules.NewPlayer(w, playerID, s.now())
	}
	if state.History == nil {
		state.History = []domain.HistoryEntry{}
	}
	return state
}

func (s *GameService) persist(ctx context.Context, state domain.PlayerState) {
	if err := s.players.Save(ctx, state); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("save player state",
			zap.String("wheel_id", state.WheelID),
			zap.String("player_id", state.PlayerID),
			zap.Error(err),
		)
	}
}
