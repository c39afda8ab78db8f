package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mpp365/backend/internal/infrastructure/config"
)

type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func newRecordingProvider(exp *recordingExporter) *LoggerProvider {
	return &LoggerProvider{
		provider:    sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp))),
		logger:      zap.NewNop(),
		serviceName: "mpp365-test",
	}
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	for name, cfg := range map[string]config.TelemetryConfig{
		"telemetry off": {LogsEnabled: true},
		"logs off":      {Enabled: true},
	} {
		t.Run(name, func(t *testing.T) {
			lp, err := NewLoggerProvider(ctx, cfg, nil)
			require.NoError(t, err)
			assert.False(t, lp.IsEnabled())
			assert.NoError(t, lp.ForceFlush(ctx))
			assert.NoError(t, lp.Shutdown(ctx))

			assert.False(t, lp.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
		})
	}
}

func TestLoggerProvider_ZapCoreForwardsAboveLevel(t *testing.T) {
	exp := &recordingExporter{}
	lp := newRecordingProvider(exp)
	t.Cleanup(func() { _ = lp.Shutdown(context.Background()) })

	local, observed := observer.New(zapcore.DebugLevel)
	logger := zap.New(zapcore.NewTee(local, lp.ZapCore(zapcore.WarnLevel)))

	logger.Info("tenant resolved", zap.String("tenant", "ACME"))
	logger.Warn("subscription expired", zap.String("tenant", "ACME"))

	assert.Equal(t, 2, observed.Len(), "local core sees everything")
	assert.Equal(t, []string{"subscription expired"}, exp.bodies())
}

func TestLevelFilterCore_With(t *testing.T) {
	exp := &recordingExporter{}
	lp := newRecordingProvider(exp)
	core := lp.ZapCore(zapcore.ErrorLevel)

	child := core.With([]zapcore.Field{zap.String("request_id", "abc")})
	filtered, ok := child.(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.ErrorLevel, filtered.minLevel)
	assert.False(t, child.Enabled(zapcore.WarnLevel))
	assert.True(t, child.Enabled(zapcore.ErrorLevel))
}

func TestNewLoggerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, config.TelemetryConfig{
		Enabled:           true,
		LogsEnabled:       true,
		CollectorEndpoint: "localhost:14317",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, lp.IsEnabled())
	_ = lp.Shutdown(ctx)
}
