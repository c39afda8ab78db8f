package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mpp365/backend/internal/domain/subscription"
	"github.com/mpp365/backend/internal/infrastructure/telemetry"
)

// setupTestMeter returns a meter backed by a manual reader.
func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_NoMeterIsNoop(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetricsWithConfig(HTTPMetricsConfig{}))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetrics_RecordsRouteStatusAndTenant(t *testing.T) {
	mp, reader := setupTestMeter(t)
	acme := newTestTenant("ACME", subscription.StatusActive, time.Now().AddDate(0, 1, 0))

	router := gin.New()
	router.Use(
		HTTPMetricsWithConfig(HTTPMetricsConfig{Meter: mp.Meter("test")}),
		TenantResolverWithConfig(TenantResolverConfig{Lookup: newStubLookup(acme)}),
	)
	router.GET("/:slug/*rest", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ACME/proyectos/", nil))
	}
	// the site root matches no route, so gin runs the engine chain with no FullPath
	miss := httptest.NewRecorder()
	router.ServeHTTP(miss, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNotFound, miss.Code)

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value(telemetry.AttrHTTPRoute)
		tenant, _ := dp.Attributes.Value(telemetry.AttrTenant)
		counts[route.AsString()+"|"+tenant.AsString()] += dp.Value
	}
	assert.Equal(t, int64(3), counts["/:slug/*rest|ACME"])
	assert.Equal(t, int64(1), counts["unknown|"])
	assert.Len(t, counts, 2)

	duration := findMetricByName(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	for _, dp := range hist.DataPoints {
		_, hasTenant := dp.Attributes.Value(attribute.Key("tenant"))
		assert.False(t, hasTenant, "latency is labelled by route only")
	}
}
