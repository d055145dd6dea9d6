package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"spin-wheel-service/internal/domain"
)

// Rules is the prize wheel economy. The zero value of any field falls back to
// DefaultRules when passed through Normalize.
type Rules struct {
	InitialPoints   int
	InitialSpins    int
	SpinCost        int
	JackpotAward    int
	BonusMultiplier int
	BonusSpins      int
	FreeSpinsAward  int
	HistoryLimit    int
	RefillInterval  time.Duration
	RefillThreshold int
	RefillAmount    int
}

func DefaultRules() Rules {
	return Rules{
		InitialPoints:   1000,
		InitialSpins:    5,
		SpinCost:        50,
		JackpotAward:    1000,
		BonusMultiplier: 2,
		BonusSpins:      3,
		FreeSpinsAward:  2,
		HistoryLimit:    10,
		RefillInterval:  5 * time.Minute,
		RefillThreshold: 3,
		RefillAmount:    2,
	}
}

// Normalize fills unset fields from DefaultRules.
func (r Rules) Normalize() Rules {
	d := DefaultRules()
	if r.InitialPoints == 0 {
		r.InitialPoints = d.InitialPoints
	}
	if r.InitialSpins == 0 {
		r.InitialSpins = d.InitialSpins
	}
	if r.SpinCost == 0 {
		r.SpinCost = d.SpinCost
	}
	if r.JackpotAward == 0 {
		r.JackpotAward = d.JackpotAward
	}
	if r.BonusMultiplier == 0 {
		r.BonusMultiplier = d.BonusMultiplier
	}
	if r.BonusSpins == 0 {
		r.BonusSpins = d.BonusSpins
	}
	if r.FreeSpinsAward == 0 {
		r.FreeSpinsAward = d.FreeSpinsAward
	}
	if r.HistoryLimit == 0 {
		r.HistoryLimit = d.HistoryLimit
	}
	if r.RefillInterval == 0 {
		r.RefillInterval = d.RefillInterval
	}
	if r.RefillThreshold == 0 {
		r.RefillThreshold = d.RefillThreshold
	}
	if r.RefillAmount == 0 {
		r.RefillAmount = d.RefillAmount
	}
	return r
}

// NewPlayer builds the starting state for a player who has never spun w.
// Quiz wheels start from zero and only accumulate answer points.
func (r Rules) NewPlayer(w domain.Wheel, playerID string, now time.Time) domain.PlayerState {
	state := domain.PlayerState{
		WheelID:      w.ID,
		PlayerID:     playerID,
		History:      []domain.HistoryEntry{},
		LastRefillAt: now,
		UpdatedAt:    now,
	}
	if !w.Variant.IsQuiz() {
		state.Points = r.InitialPoints
		state.SpinsLeft = r.InitialSpins
	}
	return state
}

// Refill grants spins for every full interval elapsed since the last refill,
// as long as the player sits below the threshold at that moment. It reports
// whether any spins were granted.
func (r Rules) Refill(state *domain.PlayerState, now time.Time) bool {
	if r.RefillInterval <= 0 {
		return false
	}
	if state.LastRefillAt.IsZero() {
		state.LastRefillAt = now
		return false
	}
	granted := false
	for !now.Before(state.LastRefillAt.Add(r.RefillInterval)) {
		state.LastRefillAt = state.LastRefillAt.Add(r.RefillInterval)
		if state.SpinsLeft < r.RefillThreshold {
			state.SpinsLeft += r.RefillAmount
			granted = true
		}
	}
	return granted
}

// Charge takes the price of one prize spin.
func (r Rules) Charge(state *domain.PlayerState) {
	state.Points -= r.SpinCost
	state.SpinsLeft--
}

// SettlePrize applies a prize wheel landing and returns the points awarded.
func (r Rules) SettlePrize(state *domain.PlayerState, seg domain.Segment) (int, string) {
	award := 0
	var message string

	switch seg.Kind {
	case domain.KindJackpot:
		award = r.JackpotAward
		message = fmt.Sprintf("JACKPOT! You won %d points", award)
	case domain.KindMultiplier:
		state.Bonus = &domain.Bonus{
			Type:       domain.KindMultiplier,
			Multiplier: r.BonusMultiplier,
			Remaining:  r.BonusSpins,
		}
		message = fmt.Sprintf("%dx bonus active for the next %d wins", r.BonusMultiplier, r.BonusSpins)
	case domain.KindFreeSpins:
		state.SpinsLeft += r.FreeSpinsAward
		message = fmt.Sprintf("You won %d free spins", r.FreeSpinsAward)
	default:
		award = seg.Points
		if state.Bonus != nil && state.Bonus.Remaining > 0 {
			b := *state.Bonus
			award *= b.Multiplier
			b.Remaining--
			state.Bonus = &b
		}
		message = fmt.Sprintf("You won %d points", award)
	}
	if state.Bonus != nil && state.Bonus.Remaining <= 0 {
		state.Bonus = nil
	}

	state.Points += award
	if award > state.HighestWin {
		state.HighestWin = award
	}
	return award, message
}

// Record appends a landing to the player's history and bookkeeping.
func (r Rules) Record(state *domain.PlayerState, seg domain.Segment, award int, now time.Time) {
	last := seg
	state.LastResult = &last
	state.TotalSpins++
	r.pushHistory(state, domain.HistoryEntry{
		ID:    uuid.NewString(),
		Label: seg.Label,
		Kind:  seg.Kind,
		Award: award,
		At:    now,
	})
}

func (r Rules) pushHistory(state *domain.PlayerState, entry domain.HistoryEntry) {
	limit := r.HistoryLimit
	if limit <= 0 {
		limit = 1
	}
	history := make([]domain.HistoryEntry, 0, limit)
	history = append(history, entry)
	for _, h := range state.History {
		if len(history) == limit {
			break
		}
		history = append(history, h)
	}
	state.History = history
}
