package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	productRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_renders_total",
			Help: "Total number of product renders by variant match outcome.",
		},
		[]string{"match"},
	)
	rejectedSubmissionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rejected_submissions_total",
			Help: "Total number of product form submissions rejected by validation.",
		},
	)
	cacheInternsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_cache_interns_total",
			Help: "Total number of request cache intern operations.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(productRendersTotal)
	prometheus.MustRegister(rejectedSubmissionsTotal)
	prometheus.MustRegister(cacheInternsTotal)
}

// RecordRender counts a product render by match outcome.
func RecordRender(match string, rejected bool) {
	productRendersTotal.WithLabelValues(match).Inc()
	if rejected {
		rejectedSubmissionsTotal.Inc()
	}
}

// RecordCacheIntern counts a cache intern, outcome "reused" or "created".
func RecordCacheIntern(outcome string) {
	cacheInternsTotal.WithLabelValues(outcome).Inc()
}

// Handler exposes the prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
