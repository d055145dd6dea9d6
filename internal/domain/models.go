package domain

import "time"

// Variant selects how a wheel picks segments and what a landing means.
type Variant string

const (
	// VariantPrize is the points wheel: weighted selection, points economy.
	VariantPrize Variant = "prize"
	// VariantQuiz maps every segment to a single question.
	VariantQuiz Variant = "quiz"
	// VariantCategoryQuiz maps every segment to a question category.
	VariantCategoryQuiz Variant = "category_quiz"
)

// IsQuiz reports whether landings on this variant open a question.
func (v Variant) IsQuiz() bool {
	return v == VariantQuiz || v == VariantCategoryQuiz
}

// SegmentKind is the symbolic outcome a segment encodes.
type SegmentKind string

const (
	KindPoints     SegmentKind = "points"
	KindMultiplier SegmentKind = "2x"
	KindJackpot    SegmentKind = "jackpot"
	KindFreeSpins  SegmentKind = "free"
	KindQuestion   SegmentKind = "question"
	KindCategory   SegmentKind = "category"
)

// Segment is one wedge of the wheel. Order within a wheel defines angular position.
type Segment struct {
	Label      string      `json:"label"`
	Kind       SegmentKind `json:"kind"`
	Points     int         `json:"points,omitempty"`
	Color      string      `json:"color,omitempty"`
	QuestionID string      `json:"questionId,omitempty"`
	Category   string      `json:"category,omitempty"`
	// Weight is the relative probability mass; nil means uniform weight 1.
	Weight *float64 `json:"weight,omitempty"`
}

// EffectiveWeight returns the weight used for sampling.
func (s Segment) EffectiveWeight() float64 {
	if s.Weight == nil {
		return 1
	}
	return *s.Weight
}

// Weight is a convenience for building weighted segments in code.
func Weight(w float64) *float64 {
	return &w
}

// Wheel is a configured wheel and, for quiz variants, its question bank.
type Wheel struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Variant   Variant    `json:"variant"`
	Segments  []Segment  `json:"segments"`
	Questions []Question `json:"questions,omitempty"`
}

// Question looks up a question by ID.
func (w Wheel) Question(id string) (Question, bool) {
	for _, q := range w.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionsInCategory returns the questions tagged with category, in bank order.
func (w Wheel) QuestionsInCategory(category string) []Question {
	var out []Question
	for _, q := range w.Questions {
		if q.Category == category {
			out = append(out, q)
		}
	}
	return out
}

// SpinOutcome is produced exactly once per accepted spin.
type SpinOutcome struct {
	SpinID       string    `json:"spinId"`
	SegmentIndex int       `json:"segmentIndex"`
	Segment      Segment   `json:"segment"`
	StartAngle   float64   `json:"startAngle"`
	TargetAngle  float64   `json:"targetAngle"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// SpinTicket is handed back to the caller when a spin is accepted.
type SpinTicket struct {
	SpinID       string        `json:"spinId"`
	WheelID      string        `json:"wheelId"`
	StartAngle   float64       `json:"startAngle"`
	TargetAngle  float64       `json:"targetAngle"`
	Duration     time.Duration `json:"duration"`
	SegmentCount int           `json:"segmentCount"`
}

// Bonus is a temporary payout multiplier.
type Bonus struct {
	Type       SegmentKind `json:"type"`
	Multiplier int         `json:"multiplier"`
	Remaining  int         `json:"remaining"`
}

// HistoryEntry is one line of a player's spin log, newest first.
type HistoryEntry struct {
	ID    string      `json:"id"`
	Label string      `json:"label"`
	Kind  SegmentKind `json:"kind"`
	Award int         `json:"award"`
	At    time.Time   `json:"at"`
}

// PendingQuestion is a question opened by a quiz landing and not yet answered.
type PendingQuestion struct {
	SpinID     string `json:"spinId"`
	QuestionID string `json:"questionId"`
}

// PlayerState is everything the game remembers about a player on one wheel.
type PlayerState struct {
	WheelID      string           `json:"wheelId"`
	PlayerID     string           `json:"playerId"`
	Points       int              `json:"points"`
	SpinsLeft    int              `json:"spinsLeft"`
	TotalSpins   int              `json:"totalSpins"`
	HighestWin   int              `json:"highestWin"`
	Bonus        *Bonus           `json:"bonus,omitempty"`
	History      []HistoryEntry   `json:"history"`
	LastResult   *Segment         `json:"lastResult,omitempty"`
	WheelAngle   float64          `json:"wheelAngle"`
	Pending      *PendingQuestion `json:"pending,omitempty"`
	QuizAnswered int              `json:"quizAnswered"`
	QuizCorrect  int              `json:"quizCorrect"`
	LastRefillAt time.Time        `json:"lastRefillAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// SpinResult is the resolved consequence of an outcome for a player.
type SpinResult struct {
	Outcome  SpinOutcome   `json:"outcome"`
	Award    int           `json:"award"`
	Message  string        `json:"message"`
	Question *QuestionView `json:"question,omitempty"`
	State    PlayerState   `json:"state"`
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	QuestionID string
	OptionID   string
}

// AnswerResult summarizes the outcome of a submission for a single player.
type AnswerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID       string   `json:"id"`
	Category string   `json:"category,omitempty"`
	Prompt   string   `json:"prompt"`
	Options  []Option `json:"options"`
	Points   int      `json:"points"` // defaults to 1 if zero
}

// View strips correctness flags so the question can be shown to a player.
func (q Question) View() QuestionView {
	opts := make([]OptionView, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, OptionView{ID: o.ID, Text: o.Text})
	}
	return QuestionView{ID: q.ID, Category: q.Category, Prompt: q.Prompt, Options: opts}
}

// QuestionView is the player-facing form of a question.
type QuestionView struct {
	ID       string       `json:"id"`
	Category string       `json:"category,omitempty"`
	Prompt   string       `json:"prompt"`
	Options  []OptionView `json:"options"`
}

// OptionView is an answer option without its correctness flag.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
