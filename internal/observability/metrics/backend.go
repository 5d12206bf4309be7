package metrics

import "github.com/prometheus/client_golang/prometheus"

// BackendMetrics tracks the reference backend's report generation.
type BackendMetrics struct {
	reportsTotal  *prometheus.CounterVec
	searchesTotal *prometheus.CounterVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "backend",
			Name:      "reports_total",
			Help:      "Generated reports by source (llm, rules) and outcome",
		}, []string{"source", "outcome"}),
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "backend",
			Name:      "hospital_searches_total",
			Help:      "Hospital directory searches by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reportsTotal, m.searchesTotal)
	return m
}

func (m *BackendMetrics) ObserveReport(source, outcome string) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *BackendMetrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
}
