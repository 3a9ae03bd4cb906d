// Package metrics collects and exposes Prometheus metrics for both services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the recording interface used by the enrollment manager and the
// HTTP layer. Callers may hold a nil *Collector; every method is nil-safe.
type Recorder interface {
	RecordEnrollment()
	RecordUnenrollment()
	RecordCounterWriteFailure(op string)
	RecordReconcileRepairs(count int)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(d time.Duration)
}

// Collector implements Recorder over a Prometheus registry.
type Collector struct {
	enrollments     prometheus.Counter
	unenrollments   prometheus.Counter
	counterFailures *prometheus.CounterVec
	repairs         prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
}

// NewCollector builds a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		enrollments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campus_enrollments_total",
			Help: "Completed enrollment operations.",
		}),
		unenrollments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campus_unenrollments_total",
			Help: "Completed unenrollment operations.",
		}),
		counterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_registration_counter_write_failures_total",
			Help: "Registration-counter writes that failed after the membership list was already updated.",
		}, []string{"op"}),
		repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campus_reconcile_repairs_total",
			Help: "Registration counters rewritten by the reconciliation sweep.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "campus_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.enrollments,
		c.unenrollments,
		c.counterFailures,
		c.repairs,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordEnrollment counts one completed enrollment.
func (c *Collector) RecordEnrollment() {
	if c == nil {
		return
	}
	c.enrollments.Inc()
}

// RecordUnenrollment counts one completed unenrollment.
func (c *Collector) RecordUnenrollment() {
	if c == nil {
		return
	}
	c.unenrollments.Inc()
}

// RecordCounterWriteFailure counts a failed counter write. These are the
// events the reconciliation sweep exists to repair.
func (c *Collector) RecordCounterWriteFailure(op string) {
	if c == nil {
		return
	}
	c.counterFailures.WithLabelValues(op).Inc()
}

// RecordReconcileRepairs counts counters rewritten by one sweep.
func (c *Collector) RecordReconcileRepairs(count int) {
	if c == nil || count <= 0 {
		return
	}
	c.repairs.Add(float64(count))
}

// RecordHTTPStatus counts one response by status code.
func (c *Collector) RecordHTTPStatus(statusCode int) {
	if c == nil {
		return
	}
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency observes one request's duration.
func (c *Collector) RecordRequestLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.requestLatency.Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
