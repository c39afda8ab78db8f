package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/mpp365/backend/internal/domain/subscription"
)

type staticStatusCounter struct {
	counts map[subscription.Status]int64
	err    error
}

func (c staticStatusCounter) CountByStatus(context.Context) (map[subscription.Status]int64, error) {
	return c.counts, c.err
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func newTestSubscriptionMetrics(t *testing.T, counter TenantStatusCounter) (*SubscriptionMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewSubscriptionMetrics(provider.Meter(meterName), counter, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m, reader
}

func TestSubscriptionMetrics_Counters(t *testing.T) {
	ctx := context.Background()
	m, reader := newTestSubscriptionMetrics(t, nil)

	m.RecordActivation(ctx, "mensual_basico", false)
	m.RecordActivation(ctx, "mensual_basico", true)
	m.RecordExpiration(ctx, 3)
	m.RecordExpiration(ctx, 0)
	m.RecordPaymentReported(ctx, "anual_completo")
	m.RecordGateDenial(ctx, "subscription", "expired")

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, data["mpp365_subscription_activations_total"]))
	assert.Equal(t, int64(1), sumFor(t, data["mpp365_subscription_activations_total"],
		AttrPlanCode.String("mensual_basico"), AttrStacked.Bool(true)))
	assert.Equal(t, int64(3), sumFor(t, data["mpp365_subscription_expirations_total"]))
	assert.Equal(t, int64(1), sumFor(t, data["mpp365_payment_reports_total"]))
	assert.Equal(t, int64(1), sumFor(t, data["mpp365_gate_denials_total"],
		AttrGate.String("subscription"), AttrReason.String("expired")))
	assert.NotContains(t, data, "mpp365_tenants")
}

func TestSubscriptionMetrics_TenantGauge(t *testing.T) {
	_, reader := newTestSubscriptionMetrics(t, staticStatusCounter{counts: map[subscription.Status]int64{
		subscription.StatusTrial:  4,
		subscription.StatusActive: 9,
	}})

	gauge, ok := collect(t, reader)["mpp365_tenants"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, len(subscription.AllStatuses()))

	byStatus := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		v, _ := dp.Attributes.Value(AttrStatus)
		byStatus[v.AsString()] = dp.Value
	}
	assert.Equal(t, int64(4), byStatus["trial"])
	assert.Equal(t, int64(9), byStatus["active"])
	assert.Equal(t, int64(0), byStatus["cancelled"])
}

func TestSubscriptionMetrics_GaugeErrorIsSwallowed(t *testing.T) {
	_, reader := newTestSubscriptionMetrics(t, staticStatusCounter{err: errors.New("db down")})
	data := collect(t, reader)
	if g, ok := data["mpp365_tenants"].(metricdata.Gauge[int64]); ok {
		assert.Empty(t, g.DataPoints)
	}
}
