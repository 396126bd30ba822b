package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Record metrics
	recordMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_record_mutations_total",
			Help: "Total number of record mutations",
		},
		[]string{"kind", "op"},
	)

	relationshipOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_relationship_operations_total",
			Help: "Total number of relationship operations",
		},
		[]string{"op", "result"},
	)

	caseNumbersIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eden_case_numbers_issued_total",
			Help: "Total number of case numbers issued",
		},
	)

	caseNumberConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eden_case_number_conflicts_total",
			Help: "Total number of case number generation conflicts",
		},
	)

	caseUpdatesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eden_case_updates_total",
			Help: "Total number of case updates added",
		},
	)

	caseUpdateDocuments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eden_case_update_documents_total",
			Help: "Total number of documents attached to case updates",
		},
	)

	lookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eden_lookup_duration_seconds",
			Help:    "Lookup query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"kind", "cache"},
	)

	blobUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eden_blob_uploads_total",
			Help: "Total number of uploaded files",
		},
		[]string{"result"},
	)

	blobsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eden_blobs_swept_total",
			Help: "Total number of orphaned uploads removed",
		},
	)

	// Database metrics
	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern labels a request by its chi route template ("/api/v1/victims/{id}")
// so IDs don't blow up label cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// RecordMutation records a create, update, status change or delete of a record kind
func RecordMutation(kind, op string) {
	recordMutations.WithLabelValues(kind, op).Inc()
}

// RecordRelationshipOp records a relationship operation outcome
func RecordRelationshipOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	relationshipOps.WithLabelValues(op, result).Inc()
}

// RecordCaseNumberIssued records a successfully assigned case number
func RecordCaseNumberIssued() {
	caseNumbersIssued.Inc()
}

// RecordCaseNumberConflict records a collision that forced a retry
func RecordCaseNumberConflict() {
	caseNumberConflicts.Inc()
}

// RecordCaseUpdate records an added case update and its document count
func RecordCaseUpdate(documents int) {
	caseUpdatesAdded.Inc()
	caseUpdateDocuments.Add(float64(documents))
}

// RecordLookup records an autocomplete query; cache is "hit", "miss" or "none"
func RecordLookup(kind, cache string, duration time.Duration) {
	lookupDuration.WithLabelValues(kind, cache).Observe(duration.Seconds())
}

// RecordBlobUpload records an upload attempt
func RecordBlobUpload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	blobUploads.WithLabelValues(result).Inc()
}

// RecordBlobsSwept records orphaned uploads removed by a sweep
func RecordBlobsSwept(n int) {
	blobsSwept.Add(float64(n))
}

// RecordDBConnections records active database connections
func RecordDBConnections(count int) {
	dbConnectionsActive.Set(float64(count))
}
