package trainstatus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Stats struct {
	EventsProcessed  *prometheus.CounterVec // source, outcome
	Resolutions      *prometheus.CounterVec // method
	SweepDeactivated prometheus.Counter
	Retries          prometheus.Counter
	ProcessDuration  prometheus.Histogram
}

func NewStats(registerer prometheus.Registerer) *Stats {
	stats := &Stats{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainstatus_events_total",
			Help: "Train events processed by source and outcome.",
		}, []string{"source", "outcome"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainstatus_resolutions_total",
			Help: "Train identity resolutions by method.",
		}, []string{"method"}),
		SweepDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainstatus_sweep_deactivated_total",
			Help: "Trains whose TD tracking was dropped by the silence sweep.",
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainstatus_retries_total",
			Help: "Event processing attempts retried after a transient failure.",
		}),
		ProcessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trainstatus_process_duration_seconds",
			Help:    "Time taken to resolve and aggregate a single event.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			stats.EventsProcessed,
			stats.Resolutions,
			stats.SweepDeactivated,
			stats.Retries,
			stats.ProcessDuration,
		)
	}

	return stats
}
