package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	checkinAttemptsTotal  *prometheus.CounterVec
	statusWritesTotal     *prometheus.CounterVec
	credentialIssuedTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the attendance API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_requests_total",
			Help: "Total number of attendance API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_latency_seconds",
			Help:    "Latency distribution for attendance API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_errors_total",
			Help: "Total number of error responses returned by the attendance API.",
		}, []string{"method", "route", "status"})

		checkinAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_checkin_attempts_total",
			Help: "Online checkin verification attempts by outcome.",
		}, []string{"outcome"})

		statusWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_status_writes_total",
			Help: "Ledger status writes by source.",
		}, []string{"source"})

		credentialIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_credentials_issued_total",
			Help: "Checkin credentials issued.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			checkinAttemptsTotal,
			statusWritesTotal,
			credentialIssuedTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// CheckinAttempts exposes the checkin attempt counter, labelled by outcome
// ("accepted", "rejected" or "failed").
func CheckinAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return checkinAttemptsTotal
}

// StatusWrites exposes the ledger write counter, labelled by source
// ("manual" or "online_checkin").
func StatusWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return statusWritesTotal
}

// CredentialsIssued exposes the issued-credential counter.
func CredentialsIssued() prometheus.Counter {
	RegisterMetrics()
	return credentialIssuedTotal
}
