package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		sessionsStartedTotal,
		sessionsCompletedTotal,
		sessionsTimedOutTotal,
		sessionsAbandonedTotal,
		sessionDurationSeconds,
		manualDecisionsTotal,
	)
}

var (
	sessionsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_sessions_started_total",
			Help: "Questionnaire sessions started, by target surface kind.",
		},
		[]string{"surface"},
	)

	sessionsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_sessions_completed_total",
			Help: "Sessions that answered every question, by resolution mode.",
		},
		[]string{"mode"},
	)

	sessionsTimedOutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_sessions_timed_out_total",
			Help: "Sessions terminated by an input timeout.",
		},
	)

	sessionsAbandonedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_sessions_abandoned_total",
			Help: "Sessions terminated because the target surface became unusable.",
		},
	)

	sessionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "registration_session_duration_seconds",
			Help:    "Wall-clock duration of completed sessions.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	manualDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registration_manual_decisions_total",
			Help: "Moderator verdicts on manual-mode registrations.",
		},
		[]string{"verdict"},
	)
)

func IncSessionStarted(surface string) {
	sessionsStartedTotal.WithLabelValues(norm(surface)).Inc()
}

func IncSessionCompleted(mode string) {
	sessionsCompletedTotal.WithLabelValues(norm(mode)).Inc()
}

func IncSessionTimedOut() { sessionsTimedOutTotal.Inc() }

func IncSessionAbandoned() { sessionsAbandonedTotal.Inc() }

func ObserveSessionDuration(d time.Duration) {
	sessionDurationSeconds.Observe(d.Seconds())
}

func IncManualDecision(verdict string) {
	manualDecisionsTotal.WithLabelValues(norm(verdict)).Inc()
}
