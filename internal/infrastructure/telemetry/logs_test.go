package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/partdb/backend/internal/infrastructure/config"
	"github.com/partdb/backend/internal/infrastructure/telemetry"
)

type exportedRecord struct {
	body     string
	severity otellog.Severity
	attrs    map[string]string
}

type recordingExporter struct {
	mu      sync.Mutex
	records []exportedRecord
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		out := exportedRecord{body: r.Body().AsString(), severity: r.Severity(), attrs: map[string]string{}}
		r.WalkAttributes(func(kv otellog.KeyValue) bool {
			out.attrs[kv.Key] = kv.Value.String()
			return true
		})
		e.records = append(e.records, out)
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func TestLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{CollectorEndpoint: "localhost:14317"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLoggerProvider_Bridge(t *testing.T) {
	exporter := &recordingExporter{}
	lp := telemetry.NewLoggerProviderWithProcessor(sdklog.NewSimpleProcessor(exporter), "partdb-test", zaptest.NewLogger(t))
	require.True(t, lp.IsEnabled())

	core, local := observer.New(zapcore.DebugLevel)
	log := lp.Bridge(zap.New(core), zapcore.InfoLevel)

	log.Debug("cache miss")
	log.Info("Part created", zap.Uint("part_id", 42))
	log.With(zap.String("request_id", "r-1")).Warn("Undo refused")

	// the local output keeps every level
	assert.Equal(t, 3, local.Len())

	exporter.mu.Lock()
	records := exporter.records
	exporter.mu.Unlock()
	require.Len(t, records, 2)
	assert.Equal(t, "Part created", records[0].body)
	assert.Equal(t, otellog.SeverityInfo, records[0].severity)
	assert.Equal(t, "42", records[0].attrs["part_id"])
	assert.Equal(t, "Undo refused", records[1].body)
	assert.Equal(t, "r-1", records[1].attrs["request_id"])

	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLogsConfigFrom(t *testing.T) {
	cfg := telemetry.LogsConfigFrom(config.TelemetryConfig{
		Enabled:           true,
		LogsEnabled:       true,
		CollectorEndpoint: "otel:4317",
		ServiceName:       "partdb",
		Insecure:          true,
	}, "1.2.0")
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, "1.2.0", cfg.ServiceVersion)

	cfg = telemetry.LogsConfigFrom(config.TelemetryConfig{LogsEnabled: true}, "")
	assert.False(t, cfg.Enabled, "log export follows the telemetry switch")
}
