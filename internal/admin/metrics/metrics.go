// Package metrics holds the Prometheus instruments of the admin console. All
// collectors are registered with the default registry, so serving
// promhttp.Handler() is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_submissions_total",
			Help: "Login submissions dispatched to the identity provider, by mode.",
		}, []string{"mode"})

	LoginOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_outcomes_total",
			Help: "Completed login submissions by mode and result.",
		}, []string{"mode", "result"})

	LoginSubmitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_submit_rejected_total",
			Help: "Submit events refused by the login view, by reason.",
		}, []string{"reason"})

	ActiveLoginSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "admin_login_sessions_active",
			Help: "Browser sessions with login state held in memory.",
		})

	LoginSessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_login_session_evict_total",
			Help: "Login sessions evicted after idling.",
		})
)

func init() {
	prometheus.MustRegister(
		LoginSubmissionsTotal,
		LoginOutcomesTotal,
		LoginSubmitRejectedTotal,
		ActiveLoginSessions,
		LoginSessionEvictTotal,
	)
}
