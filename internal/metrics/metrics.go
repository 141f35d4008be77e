package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeDecodeError = "decode_error"
	OutcomeSchemaError = "schema_error"
	OutcomeEmptyResult = "empty_result"
	OutcomeFailure     = "failure"
)

type Metrics struct {
	GeocodeRequests *prometheus.CounterVec
	APIErrors       prometheus.Counter
	RequestSeconds  *prometheus.HistogramVec
	Runs            *prometheus.CounterVec
	ActiveRuns      prometheus.Gauge
	RunsEvicted     prometheus.Counter
	Uploads         prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplot_geocode_requests_total",
			Help: "Total number of addresses sent to the geocoding provider, by outcome.",
		}, []string{"status"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geoplot_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoplot_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geoplot_runs_total",
			Help: "Total number of geocoding runs, by outcome.",
		}, []string{"outcome"}),
		ActiveRuns: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geoplot_active_runs",
			Help: "Current number of geocoding runs in progress.",
		}),
		RunsEvicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geoplot_runs_evicted_total",
			Help: "Total number of cached runs removed by the janitor.",
		}),
		Uploads: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geoplot_uploads_total",
			Help: "Total number of accepted uploads.",
		}),
	}
}
