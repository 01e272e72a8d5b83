package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	LeaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lease_transitions_total",
			Help: "Total number of lease operations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	LeaseTransitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lease_transition_duration_seconds",
			Help:    "Duration of lease operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notifications handed to delivery channels by channel and status",
		},
		[]string{"channel", "status"},
	)
	RevisionConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_revision_conflicts_total",
			Help: "Saves rejected because the document changed since it was read",
		},
		[]string{"collection"},
	)
)

func InitMetrics() {
	collectors := map[string]prometheus.Collector{
		"LeaseTransitions":        LeaseTransitions,
		"LeaseTransitionDuration": LeaseTransitionDuration,
		"NotificationsDispatched": NotificationsDispatched,
		"RevisionConflicts":       RevisionConflicts,
	}
	for name, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			log.Error().Err(err).Msgf("Failed to register %s metric", name)
		}
	}
}

// ObserveTransition records the outcome and latency of one lease operation.
func ObserveTransition(operation string, start time.Time, outcome string) {
	LeaseTransitions.WithLabelValues(operation, outcome).Inc()
	LeaseTransitionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
