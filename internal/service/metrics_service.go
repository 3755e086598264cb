package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded by the domain counters.
const (
	OutcomeCheckInPresent        = "present"
	OutcomeCheckInAlreadyPresent = "already_present"
	OutcomeCheckInRejected       = "rejected"

	OutcomeAssignAssigned   = "assigned"
	OutcomeAssignUnassigned = "unassigned"
	OutcomeAssignWarning    = "capacity_warning"
	OutcomeAssignOverride   = "override"

	OutcomeNotificationSent   = "sent"
	OutcomeNotificationFailed = "failed"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	verifications       *prometheus.CounterVec
	statusTransitions   *prometheus.CounterVec
	checkIns            *prometheus.CounterVec
	sessionAssignments  *prometheus.CounterVec
	credentialsRendered *prometheus.CounterVec
	notifications       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "document_verifications_total",
		Help: "Document verdicts recorded by verifiers",
	}, []string{"kind", "status"})

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "applicant_status_transitions_total",
		Help: "Global status changes caused by document verdicts",
	}, []string{"from", "to"})

	checkIns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_checkins_total",
		Help: "Attendance scans by outcome",
	}, []string{"outcome"})

	sessionAssignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_assignments_total",
		Help: "Session assignment attempts by outcome",
	}, []string{"outcome"})

	credentialsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credentials_rendered_total",
		Help: "Rendered credential documents",
	}, []string{"kind"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "applicant_notifications_total",
		Help: "Applicant status notifications by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		verifications, statusTransitions, checkIns, sessionAssignments, credentialsRendered, notifications, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		verifications:       verifications,
		statusTransitions:   statusTransitions,
		checkIns:            checkIns,
		sessionAssignments:  sessionAssignments,
		credentialsRendered: credentialsRendered,
		notifications:       notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite records cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordVerification counts a document verdict and, when it changed the global status, the transition.
func (m *MetricsService) RecordVerification(kind, status, from, to string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(kind, status).Inc()
	if from != to {
		m.statusTransitions.WithLabelValues(from, to).Inc()
	}
}

// RecordCheckIn counts an attendance scan outcome.
func (m *MetricsService) RecordCheckIn(outcome string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(outcome).Inc()
}

// RecordSessionAssignment counts a session assignment outcome.
func (m *MetricsService) RecordSessionAssignment(outcome string) {
	if m == nil {
		return
	}
	m.sessionAssignments.WithLabelValues(outcome).Inc()
}

// RecordCredential counts a rendered credential document.
func (m *MetricsService) RecordCredential(kind string) {
	if m == nil {
		return
	}
	m.credentialsRendered.WithLabelValues(kind).Inc()
}

// RecordNotification counts a notification delivery attempt.
func (m *MetricsService) RecordNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}
