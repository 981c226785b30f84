// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the search service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidQuery = "invalid_query"
	OutcomeError        = "error"
)

var (
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_search",
			Name:      "searches_total",
			Help:      "Total number of collection searches",
		},
		[]string{"mode", "outcome"},
	)

	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "record_search",
			Name:      "search_duration_seconds",
			Help:      "Collection search duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	recordsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_search",
			Name:      "records_scanned_total",
			Help:      "Records evaluated against a query",
		},
		[]string{"mode"},
	)

	recordsMatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "record_search",
			Name:      "records_matched_total",
			Help:      "Records that matched a query",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(searchesTotal)
	prometheus.MustRegister(searchDuration)
	prometheus.MustRegister(recordsScanned)
	prometheus.MustRegister(recordsMatched)
}

// ObserveSearch records one finished collection search.
func ObserveSearch(mode, outcome string, scanned, matched int, took time.Duration) {
	searchesTotal.WithLabelValues(mode, outcome).Inc()
	searchDuration.WithLabelValues(mode).Observe(took.Seconds())
	recordsScanned.WithLabelValues(mode).Add(float64(scanned))
	recordsMatched.WithLabelValues(mode).Add(float64(matched))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
