package study

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lagu_sessions_started_total",
		Help: "Study sessions started.",
	})

	notesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lagu_notes_completed_total",
		Help: "Notes marked read.",
	})

	notesUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lagu_notes_unlocked_total",
		Help: "Notes unlocked because their prerequisites were read.",
	})

	statusWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lagu_status_write_errors_total",
		Help: "Failed write-throughs of a note header.",
	})

	graphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lagu_graph_build_duration_seconds",
		Help:    "Time to read a study scope and build its link graph.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	})
)
