package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	submissionLatency     *prometheus.HistogramVec
	alertsTotal           *prometheus.CounterVec
	uploadsTotal          *prometheus.CounterVec
	uploadOverHintTotal   prometheus.Counter
	challengeCacheTotal   *prometheus.CounterVec
	sessionStreamsActive  prometheus.Gauge
	sessionEventsReceived *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitch_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 15, 60},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_submissions_total",
			Help: "Submissions by session mode and outcome.",
		}, []string{"mode", "outcome"})

		submissionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitch_submission_latency_seconds",
			Help:    "Time a submission spends in the pending state.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"mode"})

		alertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_alerts_total",
			Help: "User facing alerts raised by kind.",
		}, []string{"kind"})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_uploads_total",
			Help: "Selected recordings by detected MIME type.",
		}, []string{"mime"})

		uploadOverHintTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitch_upload_over_hint_total",
			Help: "Selected recordings larger than the advertised size hint.",
		})

		challengeCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_challenge_cache_total",
			Help: "Challenge catalog cache lookups by result.",
		}, []string{"result"})

		sessionStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pitch_session_streams_active",
			Help: "Open session state streams.",
		})

		sessionEventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitch_session_events_received_total",
			Help: "Session state events received from other nodes.",
		}, []string{"source"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			submissionsTotal,
			submissionLatency,
			alertsTotal,
			uploadsTotal,
			uploadOverHintTotal,
			challengeCacheTotal,
			sessionStreamsActive,
			sessionEventsReceived,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Submissions counts submissions by mode and outcome (success, failed, superseded, rejected).
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SubmissionLatency measures the pending window of a submission.
func SubmissionLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return submissionLatency
}

// Alerts counts user facing alerts.
func Alerts() *prometheus.CounterVec {
	RegisterMetrics()
	return alertsTotal
}

// Uploads counts selected recordings.
func Uploads() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// UploadOverHint counts recordings larger than the size hint.
func UploadOverHint() prometheus.Counter {
	RegisterMetrics()
	return uploadOverHintTotal
}

// ChallengeCache counts cache hits and misses of the challenge catalog.
func ChallengeCache() *prometheus.CounterVec {
	RegisterMetrics()
	return challengeCacheTotal
}

// SessionStreamsActive tracks connected session streams.
func SessionStreamsActive() prometheus.Gauge {
	RegisterMetrics()
	return sessionStreamsActive
}

// SessionEventsReceived counts fan-out events applied from other nodes.
func SessionEventsReceived() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionEventsReceived
}
