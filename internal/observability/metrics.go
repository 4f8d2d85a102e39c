package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment pipeline.
type Metrics struct {
	RequestsExtracted  prometheus.Counter
	Assessments        *prometheus.CounterVec // labels: status={ok,invalid,error}
	AssessmentDuration prometheus.Histogram
	TargetsRanked      prometheus.Histogram
	Dispositions       *prometheus.CounterVec // labels: disposition
	ResultsPublished   prometheus.Counter
	PipelineErrors     *prometheus.CounterVec // labels: stage={extract,assess,load}
	PipelineRunning    prometheus.Gauge

	// Batch processing metrics.
	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram

	// Weather provider metrics.
	WeatherRequests        *prometheus.CounterVec // labels: status={ok,error}
	WeatherRequestDuration prometheus.Histogram
	WeatherCacheHits       prometheus.Counter
	WeatherCacheMisses     prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "requests_extracted_total",
			Help:      "Total assessment requests read from the source topic.",
		}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "assessments_total",
			Help:      "Completed assessments by status.",
		}, []string{"status"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "night_sky",
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a single request assessment, including weather lookup.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		TargetsRanked: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "night_sky",
			Name:      "targets_ranked",
			Help:      "Number of targets surviving all stages per assessment.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		Dispositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "dispositions_total",
			Help:      "Per-target stage dispositions across all assessments.",
		}, []string{"disposition"}),
		ResultsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "results_published_total",
			Help:      "Total assessment results written to the sink topic.",
		}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "pipeline_errors_total",
			Help:      "Pipeline failures by stage.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "night_sky",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "night_sky",
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 250, 500},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "night_sky",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete batch extract-assess-publish cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "weather_requests_total",
			Help:      "Open-Meteo forecast requests by status.",
		}, []string{"status"}),
		WeatherRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "night_sky",
			Name:      "weather_request_duration_seconds",
			Help:      "Open-Meteo forecast request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		WeatherCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "weather_cache_hits_total",
			Help:      "Weather lookups served from the in-memory cache.",
		}),
		WeatherCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "night_sky",
			Name:      "weather_cache_misses_total",
			Help:      "Weather lookups that had to hit the forecast API.",
		}),
	}

	prometheus.MustRegister(
		m.RequestsExtracted,
		m.Assessments,
		m.AssessmentDuration,
		m.TargetsRanked,
		m.Dispositions,
		m.ResultsPublished,
		m.PipelineErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchDuration,
		m.WeatherRequests,
		m.WeatherRequestDuration,
		m.WeatherCacheHits,
		m.WeatherCacheMisses,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RequestsExtracted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "night_sky", Name: "requests_extracted_total"}),
		Assessments:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "night_sky", Name: "assessments_total"}, []string{"status"}),
		AssessmentDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "night_sky", Name: "assessment_duration_seconds"}),
		TargetsRanked:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "night_sky", Name: "targets_ranked"}),
		Dispositions:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "night_sky", Name: "dispositions_total"}, []string{"disposition"}),
		ResultsPublished:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "night_sky", Name: "results_published_total"}),
		PipelineErrors:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "night_sky", Name: "pipeline_errors_total"}, []string{"stage"}),
		PipelineRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "night_sky", Name: "pipeline_running"}),
		BatchSize:              prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "night_sky", Name: "batch_size"}),
		BatchDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "night_sky", Name: "batch_duration_seconds"}),
		WeatherRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "night_sky", Name: "weather_requests_total"}, []string{"status"}),
		WeatherRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "night_sky", Name: "weather_request_duration_seconds"}),
		WeatherCacheHits:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "night_sky", Name: "weather_cache_hits_total"}),
		WeatherCacheMisses:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "night_sky", Name: "weather_cache_misses_total"}),
	}
}
