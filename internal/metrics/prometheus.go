package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpdesk_assistant_query_duration_seconds",
			Help:    "Assistant query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"role"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_assistant_query_total",
			Help: "Total number of assistant queries processed",
		},
		[]string{"role", "status"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpdesk_assistant_confidence_score",
			Help:    "Assistant answer confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	SourcesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helpdesk_assistant_sources_returned",
			Help:    "Number of sources returned per query",
			Buckets: []float64{0, 1, 2, 5, 10, 15},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_assistant_cache_hits_total",
			Help: "Total result cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_assistant_cache_misses_total",
			Help: "Total result cache misses",
		},
		[]string{"cache_type"},
	)

	ValidationJudgments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_validation_judgments_total",
			Help: "Total validation judgments recorded",
		},
		[]string{"kind"},
	)

	ValidationCompletion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "helpdesk_validation_completion_percent",
			Help: "Percentage of validation samples marked complete",
		},
	)

	ServiceAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helpdesk_service_available",
			Help: "External service availability (1 = reachable)",
		},
		[]string{"service"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(SourcesReturned)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ValidationJudgments)
	prometheus.MustRegister(ValidationCompletion)
	prometheus.MustRegister(ServiceAvailable)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
