package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics tracks turn-taking, hospital lookups, auth transitions and
// persistence failures in the assistant client.
type SessionMetrics struct {
	turnsTotal        *prometheus.CounterVec
	turnLatency       prometheus.Histogram
	hospitalTotal     *prometheus.CounterVec
	authTotal         *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "session",
			Name:      "turns_total",
			Help:      "Symptom report turns by outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "session",
			Name:      "turn_latency_seconds",
			Help:      "Time spent waiting for the report endpoint",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 100},
		}),
		hospitalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "session",
			Name:      "hospital_recommendations_total",
			Help:      "Hospital recommendation requests by outcome",
		}, []string{"outcome"}),
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "session",
			Name:      "auth_total",
			Help:      "Login, register and logout attempts",
		}, []string{"action", "outcome"}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "session",
			Name:      "persistence_errors_total",
			Help:      "Failed or degraded snapshot reads and writes",
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.hospitalTotal, m.authTotal, m.persistenceErrors)
	return m
}

func (m *SessionMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.turnLatency.Observe(seconds)
	}
}

func (m *SessionMetrics) ObserveHospital(outcome string) {
	if m == nil {
		return
	}
	m.hospitalTotal.WithLabelValues(outcome).Inc()
}

func (m *SessionMetrics) ObserveAuth(action, outcome string) {
	if m == nil {
		return
	}
	m.authTotal.WithLabelValues(action, outcome).Inc()
}

func (m *SessionMetrics) ObservePersistenceError(op string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(op).Inc()
}
