package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	fsdomain "github.com/smallbiznis/fieldops/internal/fieldservice/domain"
	"gorm.io/gorm"
)

const (
	SyncReasonDeadlineExceeded     = "deadline_exceeded"
	SyncReasonUpstreamUnavailable  = "upstream_unavailable"
	SyncReasonUpstreamRejected     = "upstream_rejected"
	SyncReasonDBLockTimeout        = "db_lock_timeout"
	SyncReasonSerializationFailure = "serialization_failure"
	SyncReasonUniqueViolation      = "unique_violation"
	SyncReasonDB                   = "db"
	SyncReasonUnknown              = "unknown"
)

const (
	JobOutcomeCreated = "created"
	JobOutcomeUpdated = "updated"
	JobOutcomeFailed  = "failed"
)

const (
	EnrichmentCustomer = "customer"
	EnrichmentLocation = "location"
	EnrichmentInvoice  = "invoice"
)

// SyncMetrics captures sync pipeline and scheduler health.
type SyncMetrics struct {
	windows            *prometheus.CounterVec
	windowDuration     *prometheus.HistogramVec
	windowErrors       *prometheus.CounterVec
	jobs               *prometheus.CounterVec
	enrichmentAttempts *prometheus.CounterVec
	enrichmentSuccess  *prometheus.CounterVec
	schedulerRuns      prometheus.Counter
	schedulerLag       prometheus.Histogram
	notifyDropped      prometheus.Counter
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fieldops"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &SyncMetrics{
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldops_sync_windows_total",
			Help:        "Sync windows run, by run type and result.",
			ConstLabels: constLabels,
		}, []string{"run_type", "result"}),
		windowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "fieldops_sync_window_duration_seconds",
			Help:        "Wall time of one sync window.",
			Buckets:     []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 240, 300, 600},
			ConstLabels: constLabels,
		}, []string{"run_type"}),
		windowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldops_sync_window_errors_total",
			Help:        "Failed sync windows by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"run_type", "reason"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldops_sync_jobs_total",
			Help:        "Jobs reconciled by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		enrichmentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldops_enrichment_attempts_total",
			Help:        "Secondary detail fetches attempted.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		enrichmentSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fieldops_enrichment_success_total",
			Help:        "Secondary detail fetches that returned data.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		schedulerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "fieldops_scheduler_runs_total",
			Help:        "In-process scheduler ticks that triggered a sync.",
			ConstLabels: constLabels,
		}),
		schedulerLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "fieldops_scheduler_runloop_lag_seconds",
			Help:        "Scheduler run loop lag beyond the configured interval.",
			Buckets:     []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			ConstLabels: constLabels,
		}),
		notifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "fieldops_notification_dropped_total",
			Help:        "Notification tasks dropped because the queue was full.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.windows,
		m.windowDuration,
		m.windowErrors,
		m.jobs,
		m.enrichmentAttempts,
		m.enrichmentSuccess,
		m.schedulerRuns,
		m.schedulerLag,
		m.notifyDropped,
	)
	return m
}

// ObserveWindow records one finished window. A nil err counts as success.
func (m *SyncMetrics) ObserveWindow(runType string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failed"
		m.windowErrors.WithLabelValues(runType, ClassifySyncErrorReason(err)).Inc()
	}
	m.windows.WithLabelValues(runType, result).Inc()
	m.windowDuration.WithLabelValues(runType).Observe(duration.Seconds())
}

func (m *SyncMetrics) AddJobs(outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.jobs.WithLabelValues(outcome).Add(float64(count))
}

func (m *SyncMetrics) AddEnrichment(kind string, attempted, succeeded int) {
	if m == nil {
		return
	}
	if attempted > 0 {
		m.enrichmentAttempts.WithLabelValues(kind).Add(float64(attempted))
	}
	if succeeded > 0 {
		m.enrichmentSuccess.WithLabelValues(kind).Add(float64(succeeded))
	}
}

func (m *SyncMetrics) IncSchedulerRun() {
	if m == nil {
		return
	}
	m.schedulerRuns.Inc()
}

func (m *SyncMetrics) ObserveRunLoopLag(lag time.Duration) {
	if m == nil {
		return
	}
	if lag < 0 {
		lag = 0
	}
	m.schedulerLag.Observe(lag.Seconds())
}

func (m *SyncMetrics) IncNotificationDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}

// ClassifySyncErrorReason maps window failures to low-cardinality reasons.
func ClassifySyncErrorReason(err error) string {
	if err == nil {
		return SyncReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SyncReasonDeadlineExceeded
	}
	var apiErr *fsdomain.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == 0 {
			return SyncReasonUpstreamUnavailable
		}
		return SyncReasonUpstreamRejected
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return SyncReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.LockNotAvailable:
			return SyncReasonDBLockTimeout
		case pgerrcode.SerializationFailure:
			return SyncReasonSerializationFailure
		case pgerrcode.UniqueViolation:
			return SyncReasonUniqueViolation
		}
		return SyncReasonDB
	}
	if errors.Is(err, gorm.ErrInvalidDB) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return SyncReasonDB
	}
	return SyncReasonUnknown
}

// IsSyncErrorRetryable reports whether re-running the same window may succeed.
func IsSyncErrorRetryable(err error) bool {
	switch ClassifySyncErrorReason(err) {
	case SyncReasonDeadlineExceeded, SyncReasonUpstreamUnavailable, SyncReasonDBLockTimeout, SyncReasonSerializationFailure, SyncReasonDB:
		return true
	default:
		return false
	}
}
