package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"

	"github.com/mpp365/backend/internal/infrastructure/config"
	"github.com/mpp365/backend/internal/infrastructure/telemetry"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	cases := map[string]config.TelemetryConfig{
		"telemetry off":     {Enabled: false, MetricsEnabled: true},
		"metrics off":       {Enabled: true, MetricsEnabled: false, CollectorEndpoint: "localhost:4317"},
		"zero value config": {},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			assert.False(t, mp.IsEnabled())
			assert.NotNil(t, mp.Meter("test"))
			assert.NoError(t, mp.ForceFlush(ctx))
			assert.NoError(t, mp.Shutdown(ctx))
		})
	}
}

func TestNewMeterProvider_NilLogger(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, config.TelemetryConfig{
		Enabled:           true,
		MetricsEnabled:    true,
		CollectorEndpoint: "localhost:14317",
		Insecure:          true,
		MetricsInterval:   time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())
	_ = mp.Shutdown(ctx)
}

func TestInstruments_NoopMeter(t *testing.T) {
	ctx := context.Background()
	meter := noop.NewMeterProvider().Meter("test")

	counter, err := telemetry.NewCounter(meter, "test_total", "test counter", "1")
	require.NoError(t, err)
	counter.Inc(ctx, telemetry.AttrPlanCode.String("mensual_basico"))
	counter.Add(ctx, 3)

	hist, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "test_duration_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)
	hist.Record(ctx, 0.2)
	hist.RecordDuration(ctx, 150*time.Millisecond, telemetry.AttrHTTPRoute.String("/:tenant/"))

	gauge, err := telemetry.NewGauge(meter, "test_gauge", "test gauge", "1")
	require.NoError(t, err)
	gauge.Record(ctx, 7, telemetry.AttrStatus.String("active"))
}
