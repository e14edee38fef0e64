package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// NotificationsTotal counts notification outcomes by type and outcome
	// (scheduled, skipped, deduplicated, sent, retried, failed, cancelled).
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missions_notifications_total",
			Help: "Notification lifecycle events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// ConflictsTotal counts assignment attempts rejected for overlap.
	ConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "missions_scheduling_conflicts_total",
			Help: "Mission writes rejected because the agent was already booked.",
		},
	)

	// IncidentsTotal counts detected incidents by type and severity.
	IncidentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "missions_incidents_total",
			Help: "Incidents raised by checklist validation and sweeps.",
		},
		[]string{"type", "severity"},
	)

	// SweepDuration records how long each periodic job took.
	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "missions_sweep_duration_seconds",
			Help:    "Duration of periodic sweeps in seconds.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(NotificationsTotal, ConflictsTotal, IncidentsTotal, SweepDuration)
}

// ObserveSweep records the time elapsed since start for job. Use with defer:
//
//	defer observability.ObserveSweep("process_due", time.Now())
func ObserveSweep(job string, start time.Time) {
	SweepDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}
