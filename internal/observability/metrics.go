package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion,
// alerting, and notification delivery.
type Metrics struct {
	ReadingsIngested prometheus.Counter
	ReadingsRejected prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Alert metrics.
	AlertsGenerated    *prometheus.CounterVec // labels: type={flood_watch,storm_surge}, source={reading,scenario}
	AlertsCleared      prometheus.Counter
	AlertPersistErrors prometheus.Counter
	AlertPublishErrors prometheus.Counter

	// Notification metrics.
	Deliveries *prometheus.CounterVec // labels: channel={sms,push}, outcome={success,failure}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewMetricsForTesting()

	prometheus.MustRegister(
		m.ReadingsIngested,
		m.ReadingsRejected,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.AlertsGenerated,
		m.AlertsCleared,
		m.AlertPersistErrors,
		m.AlertPublishErrors,
		m.Deliveries,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReadingsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "readings_ingested_total",
			Help:      "Total sensor readings persisted and evaluated.",
		}),
		ReadingsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "readings_rejected_total",
			Help:      "Total readings rejected as malformed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coastal",
			Name:      "kafka_ingest_running",
			Help:      "1 when the Kafka ingestion loop is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coastal",
			Name:      "batch_size",
			Help:      "Number of readings per ingested batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coastal",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of ingesting one batch, including persistence and dispatch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AlertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "alerts_generated_total",
			Help:      "Alerts generated by type and source.",
		}, []string{"type", "source"}),
		AlertsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "alerts_cleared_total",
			Help:      "Alerts moved from active to cleared.",
		}),
		AlertPersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "alert_persist_errors_total",
			Help:      "Generated alerts that could not be stored.",
		}),
		AlertPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "alert_publish_errors_total",
			Help:      "Alerts that could not be written to the alert feed topic.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coastal",
			Name:      "notification_deliveries_total",
			Help:      "Notification attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}
