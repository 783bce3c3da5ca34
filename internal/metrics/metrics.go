// Package metrics exposes Prometheus collectors for quiz sessions and submissions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts sessions that entered the running phase.
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of quiz sessions started",
		},
	)

	// ActiveSessions tracks sessions currently running over WebSocket.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Current number of running quiz sessions",
		},
	)

	// Completions counts completed sessions by reason (timeout/manual).
	Completions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_session_completions_total",
			Help: "Total number of completed quiz sessions",
		},
		[]string{"reason"},
	)

	// Submissions counts attempt submissions by status (success/duplicate/failure).
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Total number of quiz attempt submissions",
		},
		[]string{"status"},
	)

	// FinalScores observes the distribution of final scores.
	FinalScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_final_score",
			Help:    "Final scores of submitted attempts",
			Buckets: prometheus.LinearBuckets(0, 250, 10),
		},
	)
)
