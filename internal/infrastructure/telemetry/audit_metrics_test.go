package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/infrastructure/persistence"
	"github.com/partdb/backend/internal/infrastructure/telemetry"
)

type fakeStats struct {
	parts, lowStock, logs int64
	err                   error
}

func (f fakeStats) CountParts(context.Context) (int64, error)      { return f.parts, nil }
func (f fakeStats) CountLowStock(context.Context) (int64, error)   { return f.lowStock, f.err }
func (f fakeStats) CountLogEntries(context.Context) (int64, error) { return f.logs, nil }

func gauge(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok, "%s is not an int64 gauge", m.Name)
	require.Len(t, data.DataPoints, 1)
	return data.DataPoints[0].Value
}

func TestNewAuditMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewAuditMetrics(nil, nil, nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestAuditMetrics_Counters(t *testing.T) {
	reader, mp := newReader(t)
	ctx := context.Background()

	m, err := telemetry.NewAuditMetrics(mp.Meter("test"), nil, zap.NewNop())
	require.NoError(t, err)

	m.RecordLogEntry(ctx, "element_created")
	m.RecordLogEntry(ctx, "element_edited")
	m.RecordUndo(ctx, "undo", true)
	m.RecordStockOperation(ctx, "withdraw", -3)
	m.RecordStockOperation(ctx, "add", 10)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sum(t, metrics["partdb_log_entries_total"]))
	assert.Equal(t, int64(1), sum(t, metrics["partdb_undo_total"]))
	assert.Equal(t, int64(2), sum(t, metrics["partdb_stock_operations_total"]))

	amounts, ok := metrics["partdb_stock_operation_amount"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var total float64
	for _, dp := range amounts.DataPoints {
		total += dp.Sum
	}
	assert.Equal(t, 13.0, total, "withdrawals are recorded as positive amounts")
}

func TestAuditMetrics_Gauges(t *testing.T) {
	reader, mp := newReader(t)

	_, err := telemetry.NewAuditMetrics(mp.Meter("test"), fakeStats{parts: 42, lowStock: 3, logs: 900}, nil)
	require.NoError(t, err)

	metrics := collect(t, reader)
	assert.Equal(t, int64(42), gauge(t, metrics["partdb_parts"]))
	assert.Equal(t, int64(3), gauge(t, metrics["partdb_parts_low_stock"]))
	assert.Equal(t, int64(900), gauge(t, metrics["partdb_log_entries"]))
}

func TestAuditMetrics_GaugeErrorsSkipOnlyThatGauge(t *testing.T) {
	reader, mp := newReader(t)

	_, err := telemetry.NewAuditMetrics(mp.Meter("test"), fakeStats{parts: 7, err: errors.New("db gone")}, nil)
	require.NoError(t, err)

	metrics := collect(t, reader)
	assert.Equal(t, int64(7), gauge(t, metrics["partdb_parts"]))
	_, ok := metrics["partdb_parts_low_stock"]
	assert.False(t, ok)
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))
	return db.DB
}

func TestGormInventoryStats(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	stocked := parts.Part{Name: "Stocked", CategoryID: 1, MinAmount: 5}
	low := parts.Part{Name: "Low", CategoryID: 1, MinAmount: 10}
	unknown := parts.Part{Name: "Unknown", CategoryID: 1, MinAmount: 1}
	plain := parts.Part{Name: "No minimum", CategoryID: 1}
	for _, p := range []*parts.Part{&stocked, &low, &unknown, &plain} {
		require.NoError(t, db.Create(p).Error)
	}
	require.NoError(t, db.Create(&[]parts.PartLot{
		{PartID: stocked.ID, Amount: 8},
		{PartID: low.ID, Amount: 4},
		{PartID: low.ID, Amount: 2},
		{PartID: unknown.ID, Amount: 50, InstockUnknown: true},
	}).Error)

	stats := telemetry.NewGormInventoryStats(db)

	n, err := stats.CountParts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = stats.CountLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "low and unknown are below their minimum")

	n, err = stats.CountLogEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegisterDBMetrics(t *testing.T) {
	db := openDB(t)
	reader, mp := newReader(t)

	m, err := telemetry.RegisterDBMetrics(db, mp, time.Second, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, m)

	var count int64
	require.NoError(t, db.Model(&parts.Part{}).Count(&count).Error)
	require.NoError(t, db.Create(&parts.Part{Name: "R1", CategoryID: 1}).Error)

	metrics := collect(t, reader)
	assert.GreaterOrEqual(t, sum(t, metrics["db_query_total"]), int64(2))
	_, ok := metrics["db_query_duration_seconds"]
	assert.True(t, ok)
	_, ok = metrics["db_pool_connections"]
	assert.True(t, ok)
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := openDB(t)
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)

	m, err := telemetry.RegisterDBMetrics(db, mp, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)
}
