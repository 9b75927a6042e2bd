// Package metrics exposes Prometheus collectors for the proctoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll and sample results
const (
	ResultAccepted    = "accepted"
	ResultRejected    = "rejected"
	ResultOK          = "ok"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

var (
	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_violations_total",
		Help: "Violations detected, by kind",
	}, []string{"kind"})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_alerts_total",
		Help: "Alerts raised, by severity",
	}, []string{"severity"})

	gazeSamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_gaze_samples_total",
		Help: "Gaze samples received; rejected before calibration completes",
	}, []string{"result"})

	presencePollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_presence_polls_total",
		Help: "Presence polls, by result",
	}, []string{"result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "proctor_active_sessions",
		Help: "Sessions currently open",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "proctor_http_request_duration_seconds",
		Help:    "HTTP request duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Violation counts a detected violation
func Violation(kind string) { violationsTotal.WithLabelValues(kind).Inc() }

// Alert counts a raised alert
func Alert(severity string) { alertsTotal.WithLabelValues(severity).Inc() }

// GazeSample counts a gaze sample as accepted or rejected
func GazeSample(accepted bool) {
	if accepted {
		gazeSamplesTotal.WithLabelValues(ResultAccepted).Inc()
		return
	}
	gazeSamplesTotal.WithLabelValues(ResultRejected).Inc()
}

// PresencePoll counts a presence poll outcome
func PresencePoll(result string) { presencePollsTotal.WithLabelValues(result).Inc() }

// SessionOpened and SessionClosed track the active session gauge
func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

// ObserveRequest records an HTTP request duration in seconds
func ObserveRequest(method, route, status string, seconds float64) {
	requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
