package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication outcomes. A nil *Metrics records nothing.
type Metrics struct {
	authentications *prometheus.CounterVec
	sessionsIssued  *prometheus.CounterVec
	passwordChanges *prometheus.CounterVec
}

// NewMetrics registers the auth counters with reg.
//
//   - gophauth_authentications_total{method,outcome}
//   - gophauth_sessions_issued_total{reason}
//   - gophauth_password_changes_total{outcome}
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		authentications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophauth",
			Name:      "authentications_total",
			Help:      "Authentication attempts by credential type and outcome",
		}, []string{"method", "outcome"}),

		sessionsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophauth",
			Name:      "sessions_issued_total",
			Help:      "Sessions created, by login or by refresh",
		}, []string{"reason"}),

		passwordChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophauth",
			Name:      "password_changes_total",
			Help:      "Password change attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) authentication(method, outcome string) {
	if m == nil {
		return
	}
	m.authentications.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) sessionIssued(reason string) {
	if m == nil {
		return
	}
	m.sessionsIssued.WithLabelValues(reason).Inc()
}

func (m *Metrics) passwordChange(outcome string) {
	if m == nil {
		return
	}
	m.passwordChanges.WithLabelValues(outcome).Inc()
}
