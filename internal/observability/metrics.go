package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "occultation_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the batch
// driver and the extraction service.
type Metrics struct {
	FilesDiscovered    prometheus.Counter
	Outcomes           *prometheus.CounterVec // labels: status={record,skipped,failed}
	ExtractionFailures *prometheus.CounterVec // labels: reason
	ExtractionDuration prometheus.Histogram
	RecordsWritten     *prometheus.CounterVec // labels: sink={xlsx,kafka,sqlite}
	BatchRunning       prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.collectors()...)
	return m
}

// Gatherer returns the registry the metrics were registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}

// WriteTextfile dumps the current metric values in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Gatherer())
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_discovered_total",
			Help:      "Total candidate workbook files found under the source directory.",
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Per-file extraction outcomes by status.",
		}, []string{"status"}),
		ExtractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Failed extractions by reason.",
		}, []string{"reason"}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time to open and extract a single workbook.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		RecordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Observation records written by sink.",
		}, []string{"sink"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while a batch is in progress, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FilesDiscovered,
		m.Outcomes,
		m.ExtractionFailures,
		m.ExtractionDuration,
		m.RecordsWritten,
		m.BatchRunning,
	}
}
