package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the HTTP API.
type Metrics struct {
	Lookups        *prometheus.CounterVec // labels: kind={metar,taf,stations}, outcome={found,not_found,invalid,error}
	UpstreamErrors prometheus.Counter
	LookupDuration *prometheus.HistogramVec // labels: kind
}

// NewMetrics creates metrics and registers them with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.Lookups, m.UpstreamErrors, m.LookupDuration)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metar_fetcher",
			Name:      "lookups_total",
			Help:      "Report lookups by kind and outcome.",
		}, []string{"kind", "outcome"}),
		UpstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metar_fetcher",
			Name:      "upstream_errors_total",
			Help:      "Failed upstream fetches or unreadable feeds.",
		}),
		LookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metar_fetcher",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of a fetch-and-scan lookup, including the upstream request.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
	}
}
