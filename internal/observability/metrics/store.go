package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	StoreReasonOK                   = "ok"
	StoreReasonDeadlineExceeded     = "deadline_exceeded"
	StoreReasonCanceled             = "canceled"
	StoreReasonLockTimeout          = "db_lock_timeout"
	StoreReasonSerializationFailure = "serialization_failure"
	StoreReasonUniqueViolation      = "unique_violation"
	StoreReasonNotFound             = "not_found"
	StoreReasonUnknown              = "unknown"
)

const (
	StoreOpUpsertUsage  = "upsert_usage"
	StoreOpSimulate     = "simulate"
	StoreOpDeleteOwner  = "delete_owner"
	StoreOpDismissAlert = "dismiss_alert"
)

// StoreMetrics tracks engine write transactions against the database.
type StoreMetrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func NewStoreMetrics(cfg Config) *StoreMetrics {
	return newStoreMetrics(prometheus.DefaultRegisterer, cfg)
}

func newStoreMetrics(registerer prometheus.Registerer, cfg Config) *StoreMetrics {
	constLabels := prometheus.Labels{
		"service": defaultLabel(cfg.ServiceName, "aquaalerts"),
		"env":     defaultLabel(cfg.Environment, "unknown"),
	}
	m := &StoreMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "aquaalerts_store_tx_duration_seconds",
			Help:        "Duration of engine write transactions.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "aquaalerts_store_tx_failures_total",
			Help:        "Failed engine write transactions by reason.",
			ConstLabels: constLabels,
		}, []string{"op", "reason"}),
	}
	if registerer != nil {
		if err := registerer.Register(m.duration); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				m.duration = already.ExistingCollector.(*prometheus.HistogramVec)
			}
		}
		if err := registerer.Register(m.failures); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				m.failures = already.ExistingCollector.(*prometheus.CounterVec)
			}
		}
	}
	return m
}

// Observe records one transaction; err may be nil.
func (m *StoreMetrics) Observe(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	if err != nil {
		m.failures.WithLabelValues(op, ClassifyStoreError(err)).Inc()
	}
}

func ClassifyStoreError(err error) string {
	if err == nil {
		return StoreReasonOK
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return StoreReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return StoreReasonCanceled
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return StoreReasonUniqueViolation
	case errors.Is(err, gorm.ErrRecordNotFound):
		return StoreReasonNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return StoreReasonLockTimeout
		case "40001", "40P01":
			return StoreReasonSerializationFailure
		case "23505":
			return StoreReasonUniqueViolation
		}
	}
	return StoreReasonUnknown
}
