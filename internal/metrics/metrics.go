// Package metrics holds the Prometheus collectors for extraction and the
// HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors bound to one registry
type Metrics struct {
	Registry *prometheus.Registry

	Extractions       *prometheus.CounterVec
	ExtractionLatency *prometheus.HistogramVec
	TokenizerFailures *prometheus.CounterVec
	ProfileFallbacks  prometheus.Counter
	Recovered         prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
	RateLimited       prometheus.Counter
	LedgerOperations  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry. Go runtime and process
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Extractions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankintent_extractions_total",
				Help: "Extractions by resolved profile, intent and winning strategy",
			},
			[]string{"profile", "intent", "strategy"},
		),
		ExtractionLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bankintent_extraction_duration_seconds",
				Help:    "Time spent in a single extraction",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"profile"},
		),
		TokenizerFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankintent_tokenizer_failures_total",
				Help: "Keyword scoring runs that got no tokens because the tokenizer failed",
			},
			[]string{"profile"},
		),
		ProfileFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "bankintent_profile_fallbacks_total",
			Help: "Extractions whose language tag fell back to the default profile",
		}),
		Recovered: f.NewCounter(prometheus.CounterOpts{
			Name: "bankintent_extraction_panics_total",
			Help: "Extractions that panicked and were reported as unknown",
		}),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankintent_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "bankintent_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		}),
		LedgerOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankintent_ledger_operations_total",
				Help: "Ledger operations by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
