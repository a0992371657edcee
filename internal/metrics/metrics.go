package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staysync",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	syncCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staysync",
			Name:      "sync_cycles_total",
			Help:      "Synchronization cycles by outcome.",
		},
		[]string{"result"},
	)

	syncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staysync",
			Name:      "sync_items_total",
			Help:      "Ledger items pushed to the remote calendar by kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	remoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staysync",
			Name:      "remote_calls_total",
			Help:      "Remote calendar calls by operation and outcome.",
		},
		[]string{"op", "result"},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "staysync",
			Name:      "sync_cycle_duration_seconds",
			Help:      "Duration of one synchronization cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	lastCycle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "staysync",
			Name:      "sync_last_cycle_timestamp_seconds",
			Help:      "Unix time of the last finished cycle.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, syncCycles, syncItems, remoteCalls, cycleDuration, lastCycle)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveCycle records a finished cycle.
func ObserveCycle(result string, d time.Duration) {
	syncCycles.WithLabelValues(result).Inc()
	cycleDuration.Observe(d.Seconds())
	lastCycle.SetToCurrentTime()
}

// IncItem counts one day or operation push.
func IncItem(kind string, ok bool) {
	syncItems.WithLabelValues(kind, outcome(ok)).Inc()
}

// IncRemoteCall counts one create/update call against the remote calendar.
func IncRemoteCall(op string, ok bool) {
	remoteCalls.WithLabelValues(op, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
