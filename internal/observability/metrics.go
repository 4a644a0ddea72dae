package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the simulation
// engine and the telemetry generator.
type Metrics struct {
	SimTicks         prometheus.Counter
	ParcelsLive      prometheus.Gauge
	SessionsStarted  prometheus.Counter
	SessionsResolved prometheus.Counter
	SiteHits         prometheus.Counter
	ReadingsIngested *prometheus.CounterVec // label: status={OK,WARNING,ALERT}
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SimTicks,
		m.ParcelsLive,
		m.SessionsStarted,
		m.SessionsResolved,
		m.SiteHits,
		m.ReadingsIngested,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to
// avoid "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SimTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spill_tracker",
			Name:      "sim_ticks_total",
			Help:      "Total simulation steps executed.",
		}),
		ParcelsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spill_tracker",
			Name:      "parcels_live",
			Help:      "Live parcels across all sessions after the last step.",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spill_tracker",
			Name:      "sessions_started_total",
			Help:      "Total spill sessions started.",
		}),
		SessionsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spill_tracker",
			Name:      "sessions_resolved_total",
			Help:      "Total spill sessions resolved.",
		}),
		SiteHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spill_tracker",
			Name:      "site_hits_total",
			Help:      "Total first-time site hits across sessions.",
		}),
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spill_tracker",
			Name:      "readings_ingested_total",
			Help:      "Sensor readings persisted, by classified status.",
		}, []string{"status"}),
	}
}
