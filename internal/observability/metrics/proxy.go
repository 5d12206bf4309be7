package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ProxyMetrics tracks forwarded requests.
type ProxyMetrics struct {
	forwardedTotal *prometheus.CounterVec
	failuresTotal  prometheus.Counter
	latency        *prometheus.HistogramVec
}

func NewProxyMetrics(reg prometheus.Registerer) *ProxyMetrics {
	m := &ProxyMetrics{
		forwardedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "proxy",
			Name:      "forwarded_total",
			Help:      "Requests relayed upstream by method and upstream status class",
		}, []string{"method", "status_class"}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "proxy",
			Name:      "forward_failures_total",
			Help:      "Requests that could not be relayed",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "proxy",
			Name:      "upstream_latency_seconds",
			Help:      "Upstream round-trip latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.forwardedTotal, m.failuresTotal, m.latency)
	return m
}

func (m *ProxyMetrics) ObserveForward(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.forwardedTotal.WithLabelValues(method, statusClass(status)).Inc()
	m.latency.WithLabelValues(method).Observe(seconds)
}

func (m *ProxyMetrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.failuresTotal.Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
