package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvestlog_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvestlog_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RequestDecisions counts access request transitions by outcome.
	RequestDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvestlog_access_request_decisions_total",
		Help: "Total access request decisions by outcome",
	}, []string{"outcome"})

	// ApprovalToggles counts evangelist approval changes.
	ApprovalToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvestlog_evangelist_approval_toggles_total",
		Help: "Total evangelist approval toggles by direction",
	}, []string{"direction"})

	// PartialSuccessTotal counts transitions whose audit log write failed.
	PartialSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvestlog_partial_success_total",
		Help: "Total operations that applied but failed to write their audit record",
	})

	// AuthzResolutions counts permission resolutions by result.
	AuthzResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvestlog_authz_resolutions_total",
		Help: "Total permission resolutions by result",
	}, []string{"result"})

	// AuthzResolutionLatency records permission resolution latency.
	AuthzResolutionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvestlog_authz_resolution_latency_seconds",
		Help:    "Permission resolution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SoulsLogged counts soul records created, labeled by church.
	SoulsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvestlog_souls_logged_total",
		Help: "Total soul records logged by church",
	}, []string{"church_id"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// RecordDecision increments the request decision counter.
func RecordDecision(outcome string) {
	RequestDecisions.WithLabelValues(outcome).Inc()
}

// RecordApprovalToggle increments the approval toggle counter.
func RecordApprovalToggle(approved bool) {
	direction := "revoked"
	if approved {
		direction = "approved"
	}
	ApprovalToggles.WithLabelValues(direction).Inc()
}

// RecordAuthzResolution records one permission resolution.
func RecordAuthzResolution(result string, start time.Time) {
	AuthzResolutions.WithLabelValues(result).Inc()
	AuthzResolutionLatency.Observe(time.Since(start).Seconds())
}

// RecordSoulLogged increments the souls counter for a church.
func RecordSoulLogged(churchID uint) {
	SoulsLogged.WithLabelValues(strconv.FormatUint(uint64(churchID), 10)).Inc()
}

// TracingContextKey is the type for context keys used in tracing.
type TracingContextKey string

const (
	// TraceIDKey is the context key for trace ID.
	TraceIDKey TracingContextKey = "trace_id"
	// SpanIDKey is the context key for span ID.
	SpanIDKey TracingContextKey = "span_id"
	// CorrelationIDKey is the context key for correlation ID.
	CorrelationIDKey TracingContextKey = "correlation_id"
)

// ExtractTraceID returns the trace ID from the context if set.
func ExtractTraceID(ctx context.Context) string {
	if id := ctx.Value(TraceIDKey); id != nil {
		return id.(string)
	}
	return ""
}

// ExtractCorrelationIDFromTracing returns the correlation ID from the context if set.
func ExtractCorrelationIDFromTracing(ctx context.Context) string {
	if id := ctx.Value(CorrelationIDKey); id != nil {
		return id.(string)
	}
	return ""
}

// NewSpanContext returns a context with trace and span ID values set.
func NewSpanContext(traceID, spanID string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, TraceIDKey, traceID)
	ctx = context.WithValue(ctx, SpanIDKey, spanID)
	return ctx
}

// WithCorrelationIDFromTracing returns a context with the correlation ID set.
func WithCorrelationIDFromTracing(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GenerateTraceID returns a new trace ID string.
func GenerateTraceID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// GenerateSpanID returns a new span ID string.
func GenerateSpanID() string {
	return strconv.FormatInt(time.Now().UnixNano()%10000000000, 36)
}
