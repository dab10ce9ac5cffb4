package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram
	SitesIngested   prometheus.Counter

	// Per-source extraction metrics.
	RecordsExtracted *prometheus.CounterVec   // labels: source
	ExtractFailures  *prometheus.CounterVec   // labels: source, reason={settings,unavailable,vocabulary,other}
	MissingValues    *prometheus.CounterVec   // labels: source
	SourceDuration   *prometheus.HistogramVec // labels: source

	// Grid cache metrics.
	GridCacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	// Forcing sink metrics.
	SinkPublished prometheus.Counter
	SinkFailures  prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ingestr",
			Name:      "pipeline_running",
			Help:      "1 while an ingestion run is active, 0 otherwise.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ingestr",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-aggregate-join run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		SitesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "sites_ingested_total",
			Help:      "Sites that received a row in a completed run.",
		}),
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "records_extracted_total",
			Help:      "Raw records extracted, by source.",
		}, []string{"source"}),
		ExtractFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "extract_failures_total",
			Help:      "Failed source extractions by source and failure reason.",
		}, []string{"source", "reason"}),
		MissingValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "missing_values_total",
			Help:      "Extracted cells carrying the missing-value marker, by source.",
		}, []string{"source"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingestr",
			Name:      "source_duration_seconds",
			Help:      "Duration of one source extraction in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		GridCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "grid_cache_lookups_total",
			Help:      "Open-grid cache lookups by result.",
		}, []string{"result"}),
		SinkPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "sink_published_total",
			Help:      "Forcing records published to the sink topic.",
		}),
		SinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ingestr",
			Name:      "sink_failures_total",
			Help:      "Forcing records that failed to publish.",
		}),
	}

	prometheus.MustRegister(
		m.PipelineRunning,
		m.RunDuration,
		m.SitesIngested,
		m.RecordsExtracted,
		m.ExtractFailures,
		m.MissingValues,
		m.SourceDuration,
		m.GridCacheLookups,
		m.SinkPublished,
		m.SinkFailures,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PipelineRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "ingestr", Name: "pipeline_running"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "ingestr", Name: "run_duration_seconds"}),
		SitesIngested:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ingestr", Name: "sites_ingested_total"}),
		RecordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ingestr", Name: "records_extracted_total"}, []string{"source"}),
		ExtractFailures:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ingestr", Name: "extract_failures_total"}, []string{"source", "reason"}),
		MissingValues:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ingestr", Name: "missing_values_total"}, []string{"source"}),
		SourceDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "ingestr", Name: "source_duration_seconds"}, []string{"source"}),
		GridCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "ingestr", Name: "grid_cache_lookups_total"}, []string{"result"}),
		SinkPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ingestr", Name: "sink_published_total"}),
		SinkFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "ingestr", Name: "sink_failures_total"}),
	}
}
