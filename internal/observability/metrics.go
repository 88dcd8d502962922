package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a dataset build.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	BuildDuration   prometheus.Histogram

	// Dataset metrics.
	StationsLoaded prometheus.Gauge
	AlertsFetched  prometheus.Counter
	RecordsBuilt   *prometheus.CounterVec // labels: label={positive,negative}
	RecordFailures *prometheus.CounterVec // labels: label={positive,negative}
	SinkRecords    *prometheus.CounterVec // labels: sink={csv,kafka,upload}

	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: api, outcome={success,rate_limited,error,circuit_open}
	UpstreamDuration *prometheus.HistogramVec // labels: api

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: cache, result={hit,miss}

	GeocodeEnabled prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.PipelineRunning,
		m.BuildDuration,
		m.StationsLoaded,
		m.AlertsFetched,
		m.RecordsBuilt,
		m.RecordFailures,
		m.SinkRecords,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.GeocodeEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a dataset build is in progress, 0 otherwise."),
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      help("Duration of a complete dataset build."),
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_loaded",
			Help:      help("Monitoring stations held by the station directory."),
		}),
		AlertsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fetched_total",
			Help:      help("Flood alerts returned by the alert source after filtering."),
		}),
		RecordsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_built_total",
			Help:      help("Dataset records assembled by label."),
		}, []string{"label"}),
		RecordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_failures_total",
			Help:      help("Records skipped because assembly failed."),
		}, []string{"label"}),
		SinkRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_records_total",
			Help:      help("Records delivered to each sink."),
		}, []string{"sink"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      help("Upstream API requests by api and outcome."),
		}, []string{"api", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      help("Upstream API request duration in seconds, retries included."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"api"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      help("File cache lookups by cache and result."),
		}, []string{"cache", "result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when the geocoding fallback is enabled, 0 otherwise."),
		}),
	}
}
