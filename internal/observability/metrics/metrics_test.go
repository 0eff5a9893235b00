package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "threshold_exceeded"),
		attribute.String("owner_id", "456"),
		attribute.String("email", "someone@example.com"),
		attribute.String("outcome", "created"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("kind"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUsageWrite(context.Background(), "created", false, 120)
		m.RecordAlertGenerated(context.Background(), "approaching_limit")
		m.RecordOTPSent(context.Background(), "ok")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordUsageWrite(context.Background(), "updated", true, 199)
		m.RecordSimulation(context.Background(), 7)
	})
}

func TestClassifyStoreError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, StoreReasonOK},
		{context.DeadlineExceeded, StoreReasonDeadlineExceeded},
		{fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey), StoreReasonUniqueViolation},
		{&pgconn.PgError{Code: "55P03"}, StoreReasonLockTimeout},
		{&pgconn.PgError{Code: "40001"}, StoreReasonSerializationFailure},
		{&pgconn.PgError{Code: "23505"}, StoreReasonUniqueViolation},
		{errors.New("boom"), StoreReasonUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyStoreError(tc.err), "err=%v", tc.err)
	}
}

func TestStoreMetricsObserveCountsFailures(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newStoreMetrics(registry, Config{ServiceName: "test"})

	m.Observe(StoreOpUpsertUsage, time.Now(), nil)
	m.Observe(StoreOpUpsertUsage, time.Now(), &pgconn.PgError{Code: "40001"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues(StoreOpUpsertUsage, StoreReasonSerializationFailure)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHTTPMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m, err := newHTTPMetrics(registry, Config{ServiceName: "test", Environment: "test"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	families, err := registry.Gather()
	require.NoError(t, err)

	var counter *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "aquaalerts_http_requests_total" {
			counter = family
		}
	}
	require.NotNil(t, counter)
	require.Len(t, counter.GetMetric(), 1)

	labels := map[string]string{}
	for _, pair := range counter.GetMetric()[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "/health", labels["route"])
	assert.Equal(t, "200", labels["status_code"])
	assert.Equal(t, 1.0, counter.GetMetric()[0].GetCounter().GetValue())
}
