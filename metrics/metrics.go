package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/warp/aca-engine/aca"
)

// Metrics provides observability for assessment runs and the HTTP API.
// It implements aca.Recorder. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	Assessments     *prometheus.CounterVec
	RecordFailures  *prometheus.CounterVec
	Batches         *prometheus.CounterVec
	BatchRecords    prometheus.Histogram
	BatchDuration   prometheus.Histogram
	PenaltyExposure *prometheus.GaugeVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

var _ aca.Recorder = (*Metrics)(nil)

// New creates a Metrics instance on its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aca_assessments_total",
			Help: "Employee assessments completed, by tax year and status",
		}, []string{"tax_year", "status"}),
		RecordFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aca_record_failures_total",
			Help: "Employee records that failed, by tax year and pipeline stage",
		}, []string{"tax_year", "stage"}),
		Batches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aca_batches_total",
			Help: "Batch runs completed, by tax year",
		}, []string{"tax_year"}),
		BatchRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aca_batch_records",
			Help:    "Number of records per batch run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aca_batch_duration_seconds",
			Help:    "Duration of batch runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		PenaltyExposure: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aca_last_batch_penalty_exposure_dollars",
			Help: "Aggregate penalty exposure of the most recent batch, by tax year",
		}, []string{"tax_year"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aca_http_requests_total",
			Help: "HTTP requests, by route and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aca_http_request_duration_seconds",
			Help:    "HTTP request latency, by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"method", "route"}),
	}
}

// RecordAssessment counts one completed employee assessment.
func (m *Metrics) RecordAssessment(taxYear int, status aca.ComplianceStatus) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(strconv.Itoa(taxYear), string(status)).Inc()
}

// RecordFailure counts one failed record.
func (m *Metrics) RecordFailure(taxYear int, stage aca.Stage) {
	if m == nil {
		return
	}
	m.RecordFailures.WithLabelValues(strconv.Itoa(taxYear), string(stage)).Inc()
}

// RecordBatch records the size, duration and exposure of a batch.
func (m *Metrics) RecordBatch(taxYear int, records int, exposure decimal.Decimal, elapsed time.Duration) {
	if m == nil {
		return
	}
	year := strconv.Itoa(taxYear)
	m.Batches.WithLabelValues(year).Inc()
	m.BatchRecords.Observe(float64(records))
	m.BatchDuration.Observe(elapsed.Seconds())
	m.PenaltyExposure.WithLabelValues(year).Set(exposure.InexactFloat64())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
