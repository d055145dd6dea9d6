package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spin-wheel-service/internal/app"
	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/infra/memory"
	"spin-wheel-service/internal/wheel"
)

func TestJoinStartsNewPlayer(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	state, err := service.Join(ctx, "jackpot", "u1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if state.Points != 1000 || state.SpinsLeft != 5 || state.TotalSpins != 0 {
		t.Fatalf("unexpected starting state %+v", state)
	}
	if state.WheelID != "jackpot" || state.PlayerID != "u1" {
		t.Fatalf("unexpected identity %+v", state)
	}

	if _, err := service.Join(ctx, "missing", "u1"); !errors.Is(err, domain.ErrWheelNotFound) {
		t.Fatalf("expected ErrWheelNotFound, got %v", err)
	}
}

func TestSpinAppliesPrizeRules(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	_, _ = service.Join(ctx, "jackpot", "u1")

	result := spinAndWait(t, service, "jackpot", "u1")
	if result.Award != 1000 || result.Outcome.Segment.Kind != domain.KindJackpot {
		t.Fatalf("unexpected result %+v", result)
	}
	st := result.State
	// 1000 - 50 cost + 1000 jackpot
	if st.Points != 1950 || st.SpinsLeft != 4 || st.TotalSpins != 1 || st.HighestWin != 1000 {
		t.Fatalf("unexpected state %+v", st)
	}
	if len(st.History) != 1 || st.History[0].Award != 1000 || st.LastResult == nil {
		t.Fatalf("unexpected history %+v", st.History)
	}
	if st.WheelAngle != result.Outcome.TargetAngle {
		t.Fatalf("expected resting angle %v, got %v", result.Outcome.TargetAngle, st.WheelAngle)
	}
	if wheel.LandedIndex(st.WheelAngle, 1) != result.Outcome.SegmentIndex {
		t.Fatalf("landed segment mismatch")
	}
}

func TestSpinContinuesFromRestingAngle(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	_, _ = service.Join(ctx, "hundred", "u1")

	first := spinAndWait(t, service, "hundred", "u1")
	second := spinAndWait(t, service, "hundred", "u1")
	if second.Outcome.StartAngle != first.Outcome.TargetAngle {
		t.Fatalf("expected second spin to start at %v, got %v", first.Outcome.TargetAngle, second.Outcome.StartAngle)
	}
	if second.Outcome.TargetAngle <= first.Outcome.TargetAngle {
		t.Fatalf("expected angle to keep increasing")
	}
}

func TestBonusDoublesFollowingWins(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	_, _ = service.Join(ctx, "bonus", "u1")

	result := spinAndWait(t, service, "bonus", "u1")
	if result.State.Bonus == nil || result.State.Bonus.Remaining != 3 {
		t.Fatalf("expected active bonus, got %+v", result.State.Bonus)
	}
}

func TestSpinRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("no spins left", func(t *testing.T) {
		service, _ := newTestService(t, app.WithRules(app.Rules{InitialSpins: 1}))
		_, _ = service.Join(ctx, "hundred", "u1")
		spinAndWait(t, service, "hundred", "u1")

		_, err := service.Spin(ctx, "hundred", "u1")
		if !errors.Is(err, domain.ErrSpinRejected) || domain.ReasonOf(err) != domain.RejectNoSpinsLeft {
			t.Fatalf("expected NoSpinsLeft, got %v", err)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		service, _ := newTestService(t, app.WithRules(app.Rules{InitialPoints: 40}))
		before, _ := service.Join(ctx, "hundred", "u1")

		_, err := service.Spin(ctx, "hundred", "u1")
		if domain.ReasonOf(err) != domain.RejectInsufficientBalance {
			t.Fatalf("expected InsufficientBalance, got %v", err)
		}
		after, _ := service.State(ctx, "hundred", "u1")
		if after.Points != before.Points || after.SpinsLeft != before.SpinsLeft {
			t.Fatalf("rejection changed state: before=%+v after=%+v", before, after)
		}
	})

	t.Run("already spinning", func(t *testing.T) {
		service, _ := newTestService(t, app.WithSpinConfig(wheel.Config{Duration: time.Hour, MinRotations: 1}))
		_, _ = service.Join(ctx, "hundred", "u1")

		first, err := service.Spin(ctx, "hundred", "u1")
		if err != nil {
			t.Fatalf("first spin failed: %v", err)
		}
		charged, _ := service.State(ctx, "hundred", "u1")

		_, err = service.Spin(ctx, "hundred", "u1")
		if domain.ReasonOf(err) != domain.RejectAlreadySpinning {
			t.Fatalf("expected AlreadySpinning, got %v", err)
		}
		again, _ := service.State(ctx, "hundred", "u1")
		if again.Points != charged.Points || again.SpinsLeft != charged.SpinsLeft {
			t.Fatalf("second request changed state")
		}

		// Leaving settles the in-flight spin with its original target.
		service.Leave(ctx, "hundred", "u1")
		final, _ := service.State(ctx, "hundred", "u1")
		if final.WheelAngle != first.TargetAngle || final.TotalSpins != 1 {
			t.Fatalf("expected settled spin at %v, got %+v", first.TargetAngle, final)
		}
	})

	t.Run("not joined", func(t *testing.T) {
		service, _ := newTestService(t)
		if _, err := service.Spin(ctx, "hundred", "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestCancelledContextSettlesSpin(t *testing.T) {
	service, _ := newTestService(t, app.WithSpinConfig(wheel.Config{Duration: time.Hour, MinRotations: 1}))
	_, _ = service.Join(context.Background(), "hundred", "u1")

	events, cancelSub, err := service.Subscribe(context.Background(), "hundred", "u1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	ticket, err := service.Spin(ctx, "hundred", "u1")
	if err != nil {
		t.Fatalf("spin failed: %v", err)
	}
	cancel()

	result := awaitResult(t, events, ticket.SpinID)
	if result.Outcome.TargetAngle != ticket.TargetAngle || result.Award != 100 {
		t.Fatalf("expected settled outcome, got %+v", result)
	}
}

func TestStatePersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	service, players := newTestService(t)
	_, _ = service.Join(ctx, "hundred", "u1")
	spinAndWait(t, service, "hundred", "u1")
	service.Wait()
	service.Leave(ctx, "hundred", "u1")

	saved, ok, err := players.Load(ctx, "hundred", "u1")
	if err != nil || !ok {
		t.Fatalf("expected saved state, ok=%v err=%v", ok, err)
	}
	if saved.Points != 1050 || saved.TotalSpins != 1 {
		t.Fatalf("unexpected saved state %+v", saved)
	}

	rejoined, err := service.Join(ctx, "hundred", "u1")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if rejoined.Points != 1050 || rejoined.WheelAngle != saved.WheelAngle {
		t.Fatalf("expected restored state, got %+v", rejoined)
	}
}

func TestRefillOnJoin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	service, players := newTestService(t, app.WithClock(clock))

	_ = players.Save(ctx, domain.PlayerState{
		WheelID:      "hundred",
		PlayerID:     "u1",
		Points:       500,
		SpinsLeft:    0,
		LastRefillAt: now.Add(-6 * time.Minute),
	})

	state, err := service.Join(ctx, "hundred", "u1")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if state.SpinsLeft != 2 {
		t.Fatalf("expected refill to 2 spins, got %d", state.SpinsLeft)
	}
}

func TestSaveFailureDoesNotFailSpin(t *testing.T) {
	ctx := context.Background()
	service := app.NewGameService(
		memory.NewWheelRepository(memory.NewStaticWheelLoader(testWheels()), time.Minute),
		failingStore{},
		memory.NewSessionStore(),
		app.WithSpinConfig(wheel.Config{Duration: 5 * time.Millisecond, MinRotations: 1}),
		app.WithFrameInterval(time.Millisecond),
	)
	t.Cleanup(service.Wait)

	if _, err := service.Join(ctx, "hundred", "u1"); err != nil {
		t.Fatalf("join should tolerate a broken store: %v", err)
	}
	result := spinAndWait(t, service, "hundred", "u1")
	if result.Award != 100 {
		t.Fatalf("unexpected award %d", result.Award)
	}
}

func TestSubscribeStartsWithState(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	_, _ = service.Join(ctx, "hundred", "u1")

	ch, cancel, err := service.Subscribe(ctx, "hundred", "u1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	first := <-ch
	if first.Type != domain.EventState || first.State == nil || first.State.Points != 1000 {
		t.Fatalf("expected initial state event, got %+v", first)
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}

	if _, _, err := service.Subscribe(ctx, "hundred", "ghost"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Load(context.Context, string, string) (domain.PlayerState, bool, error) {
	return domain.PlayerState{}, false, errStoreDown
}

func (failingStore) Save(context.Context, domain.PlayerState) error {
	return errStoreDown
}

func TestLeaveKeepsSpinWhileAnotherConnectionIsAttached(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t, app.WithSpinConfig(wheel.Config{Duration: time.Hour, MinRotations: 1}))
	_, _ = service.Join(ctx, "hundred", "u1")
	_, _ = service.Join(ctx, "hundred", "u1")

	first, err := service.Spin(ctx, "hundred", "u1")
	if err != nil {
		t.Fatalf("spin failed: %v", err)
	}

	service.Leave(ctx, "hundred", "u1")
	if _, err := service.Spin(ctx, "hundred", "u1"); domain.ReasonOf(err) != domain.RejectAlreadySpinning {
		t.Fatalf("expected spin still in flight, got %v", err)
	}
	mid, _ := service.State(ctx, "hundred", "u1")
	if mid.TotalSpins != 0 {
		t.Fatalf("spin settled while a connection was still attached: %+v", mid)
	}

	service.Leave(ctx, "hundred", "u1")
	final, _ := service.State(ctx, "hundred", "u1")
	if final.TotalSpins != 1 || final.WheelAngle != first.TargetAngle {
		t.Fatalf("expected spin settled by last leave, got %+v", final)
	}
}

func TestConcurrentJoinAndLeaveKeepSessionReachable(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := service.Join(ctx, "hundred", "u1"); err != nil {
				t.Errorf("join: %v", err)
				return
			}
			service.Leave(ctx, "hundred", "u1")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := service.Join(ctx, "hundred", "u1"); err != nil {
				t.Errorf("join: %v", err)
				return
			}
			_, cancel, err := service.Subscribe(ctx, "hundred", "u1")
			if err != nil {
				t.Errorf("joined session not reachable on attempt %d: %v", i, err)
				return
			}
			cancel()
			service.Leave(ctx, "hundred", "u1")
		}
	}()
	wg.Wait()
}
