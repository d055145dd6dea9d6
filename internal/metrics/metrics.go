package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelWheel   = "wheel"
	labelReason  = "reason"
	labelSegment = "segment"
	labelCorrect = "correct"
)

var (
	SpinsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_spins_accepted_total",
			Help: "Spin requests that started an animation",
		},
		[]string{labelWheel},
	)

	SpinsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_spins_rejected_total",
			Help: "Spin requests refused at the idle gate",
		},
		[]string{labelWheel, labelReason},
	)

	SpinOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_spin_outcomes_total",
			Help: "Resolved spins by landed segment",
		},
		[]string{labelWheel, labelSegment},
	)

	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_points_awarded_total",
			Help: "Points paid out by spins and answers",
		},
		[]string{labelWheel},
	)

	QuizAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wheel_quiz_answers_total",
			Help: "Answered quiz questions",
		},
		[]string{labelWheel, labelCorrect},
	)

	ActiveSpins = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wheel_active_spins",
			Help: "Spins currently animating",
		},
	)
)

// Recorder is the slice of metrics the game service reports to.
type Recorder interface {
	SpinAccepted(wheelID string)
	SpinRejected(wheelID, reason string)
	SpinResolved(wheelID, segment string, award int)
	QuizAnswered(wheelID string, correct bool, award int)
}

// Prometheus reports to the package collectors.
type Prometheus struct{}

func (Prometheus) SpinAccepted(wheelID string) {
	SpinsAccepted.WithLabelValues(wheelID).Inc()
	ActiveSpins.Inc()
}

func (Prometheus) SpinRejected(wheelID, reason string) {
	SpinsRejected.WithLabelValues(wheelID, reason).Inc()
}

func (Prometheus) SpinResolved(wheelID, segment string, award int) {
	ActiveSpins.Dec()
	SpinOutcomes.WithLabelValues(wheelID, segment).Inc()
	if award > 0 {
		PointsAwarded.WithLabelValues(wheelID).Add(float64(award))
	}
}

func (Prometheus) QuizAnswered(wheelID string, correct bool, award int) {
	QuizAnswers.WithLabelValues(wheelID, strconv.FormatBool(correct)).Inc()
	if award > 0 {
		PointsAwarded.WithLabelValues(wheelID).Add(float64(award))
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) SpinAccepted(string)              {}
func (Nop) SpinRejected(string, string)      {}
func (Nop) SpinResolved(string, string, int) {}
func (Nop) QuizAnswered(string, bool, int)   {}
