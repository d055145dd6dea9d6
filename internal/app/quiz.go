package app

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/wheel"
)

// openQuestion resolves the question a quiz landing opens. ok is false when a
// category has no questions.
func openQuestion(w domain.Wheel, seg domain.Segment, src wheel.Source) (domain.Question, bool) {
	switch w.Variant {
	case domain.VariantQuiz:
		return w.Question(seg.QuestionID)
	case domain.VariantCategoryQuiz:
		pool := w.QuestionsInCategory(seg.Category)
		if len(pool) == 0 {
			return domain.Question{}, false
		}
		return pool[src.Intn(len(pool))], true
	default:
		return domain.Question{}, false
	}
}

func questionMessage(seg domain.Segment, q domain.Question, ok bool) string {
	if !ok {
		return fmt.Sprintf("No questions available for %s", seg.Label)
	}
	if q.Category != "" {
		return fmt.Sprintf("%s: %s", q.Category, q.Prompt)
	}
	return q.Prompt
}

// scoreSubmission validates the answer against the wheel's question bank and
// returns (correct, points).
func scoreSubmission(w domain.Wheel, submission domain.AnswerSubmission) (bool, int, error) {
	question, ok := w.Question(submission.QuestionID)
	if !ok {
		return false, 0, domain.ErrQuestionNotFound
	}

	var selected *domain.Option
	for i := range question.Options {
		if question.Options[i].ID == submission.OptionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return false, 0, domain.ErrOptionNotFound
	}

	points := question.Points
	if points == 0 {
		points = 1
	}
	if selected.Correct {
		return true, points, nil
	}
	return false, 0, nil
}

// applyAnswer records a scored answer against the pending question.
func (r Rules) applyAnswer(state *domain.PlayerState, q domain.Question, correct bool, points int, now time.Time) int {
	awarded := 0
	if correct {
		awarded = points
		state.Points += points
		state.QuizCorrect++
		if awarded > state.HighestWin {
			state.HighestWin = awarded
		}
	}
	state.QuizAnswered++
	state.Pending = nil
	label := q.Prompt
	if q.Category != "" {
		label = q.Category
	}
	r.pushHistory(state, domain.HistoryEntry{
		ID:    uuid.NewString(),
		Label: label,
		Kind:  domain.KindQuestion,
		Award: awarded,
		At:    now,
	})
	return awarded
}
