package telemetry

import (
	"context"
	"errors"
	"math"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when instruments are created without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// InventoryStats reports the inventory state observed by the gauges
type InventoryStats interface {
	CountParts(ctx context.Context) (int64, error)
	// CountLowStock counts parts whose known stock is below their minimum amount
	CountLowStock(ctx context.Context) (int64, error)
	CountLogEntries(ctx context.Context) (int64, error)
}

// AuditMetrics counts log entries, undo operations and stock changes and
// observes the inventory size. It satisfies the metrics interfaces of the
// log recorder and the lot service.
type AuditMetrics struct {
	logEntries *Counter
	undos      *Counter
	stockOps   *Counter
	stockMoved *Histogram
	logger     *zap.Logger
}

// NewAuditMetrics creates the instruments. stats may be nil, in which case
// no gauges are registered.
func NewAuditMetrics(meter metric.Meter, stats InventoryStats, logger *zap.Logger) (*AuditMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &AuditMetrics{logger: logger}

	var err error
	if m.logEntries, err = NewCounter(meter, "partdb_log_entries_total", "Written log entries by type", "{entry}"); err != nil {
		return nil, err
	}
	if m.undos, err = NewCounter(meter, "partdb_undo_total", "Undo and revert operations", "{operation}"); err != nil {
		return nil, err
	}
	if m.stockOps, err = NewCounter(meter, "partdb_stock_operations_total", "Stock add, withdraw and move operations", "{operation}"); err != nil {
		return nil, err
	}
	if m.stockMoved, err = NewHistogram(meter, HistogramOpts{
		Name:        "partdb_stock_operation_amount",
		Description: "Amounts changed by stock operations",
		Unit:        "{part}",
		Boundaries:  []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	}); err != nil {
		return nil, err
	}

	if stats != nil {
		if err := m.observe(meter, stats); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *AuditMetrics) observe(meter metric.Meter, stats InventoryStats) error {
	parts, err := meter.Int64ObservableGauge("partdb_parts", metric.WithDescription("Stored parts"))
	if err != nil {
		return err
	}
	lowStock, err := meter.Int64ObservableGauge("partdb_parts_low_stock", metric.WithDescription("Parts below their minimum amount"))
	if err != nil {
		return err
	}
	logSize, err := meter.Int64ObservableGauge("partdb_log_entries", metric.WithDescription("Stored log entries"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		for _, g := range []struct {
			gauge metric.Int64ObservableGauge
			count func(context.Context) (int64, error)
		}{
			{parts, stats.CountParts},
			{lowStock, stats.CountLowStock},
			{logSize, stats.CountLogEntries},
		} {
			n, err := g.count(ctx)
			if err != nil {
				m.logger.Warn("Failed to collect inventory metrics", zap.Error(err))
				continue
			}
			o.ObserveInt64(g.gauge, n)
		}
		return nil
	}, parts, lowStock, logSize)
	return err
}

// RecordLogEntry counts a written log entry
func (m *AuditMetrics) RecordLogEntry(ctx context.Context, entryType string) {
	m.logEntries.Inc(ctx, AttrLogType.String(entryType))
}

// RecordUndo counts an undo or revert
func (m *AuditMetrics) RecordUndo(ctx context.Context, mode string, success bool) {
	m.undos.Inc(ctx, AttrUndoMode.String(mode), AttrSuccess.Bool(success))
}

// RecordStockOperation counts a stock change of amount
func (m *AuditMetrics) RecordStockOperation(ctx context.Context, operation string, amount float64) {
	m.stockOps.Inc(ctx, AttrOperation.String(operation))
	m.stockMoved.Record(ctx, math.Abs(amount), AttrOperation.String(operation))
}
