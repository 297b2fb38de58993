// Registers:
//
//	#cryptocalc_refresh_cycles_total{trigger,outcome}
//	#cryptocalc_price_fetch_duration_seconds
//	#cryptocalc_insights_total{source}
//	#cryptocalc_assets_excluded_total
//	#go_* and process_* system metrics
//
// Exposed through Handler, mounted by the API server on /metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptocalc/logger"
)

var (
	once           sync.Once
	registry       *prometheus.Registry
	refreshCycles  *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	insights       *prometheus.CounterVec
	assetsExcluded prometheus.Counter
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		refreshCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptocalc_refresh_cycles_total",
				Help: "Refresh cycles by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		)
		fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptocalc_price_fetch_duration_seconds",
			Help:    "Latency of market price requests",
			Buckets: prometheus.DefBuckets,
		})
		insights = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptocalc_insights_total",
				Help: "Generated market commentaries by source",
			},
			[]string{"source"},
		)
		assetsExcluded = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptocalc_assets_excluded_total",
			Help: "Upstream price records dropped for a missing or non-positive price",
		})

		registry.MustRegister(refreshCycles, fetchDuration, insights, assetsExcluded)
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registered collectors in the Prometheus text format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveRefresh counts a refresh cycle outcome: ok, failed, superseded or skipped.
func ObserveRefresh(trigger, outcome string) {
	if refreshCycles != nil {
		refreshCycles.WithLabelValues(trigger, outcome).Inc()
	}
	EmitMetric(nil, "refresh", "refresh_cycles", 1, "counter", logger.Fields{"trigger": trigger, "outcome": outcome})
}

// ObserveFetch records one price request latency.
func ObserveFetch(d time.Duration) {
	if fetchDuration != nil {
		fetchDuration.Observe(d.Seconds())
	}
	EmitMetric(nil, "coingecko", "price_fetch_ms", float64(d)/float64(time.Millisecond), "gauge", nil)
}

// ObserveInsight counts a commentary by source, "ai" or "fallback".
func ObserveInsight(source string) {
	if insights != nil {
		insights.WithLabelValues(source).Inc()
	}
	EmitMetric(nil, "gemini", "insights", 1, "counter", logger.Fields{"source": source})
}

// AddExcluded counts dropped price records.
func AddExcluded(n int) {
	if n <= 0 {
		return
	}
	if assetsExcluded != nil {
		assetsExcluded.Add(float64(n))
	}
	EmitMetric(nil, "coingecko", "assets_excluded", n, "counter", nil)
}
