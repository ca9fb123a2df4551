package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/partdb/backend/internal/infrastructure/config"
)

// DBTracingConfig holds the database tracing settings
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans
	SlowQueryThresh time.Duration
	DBName          string
}

// DBTracingConfigFrom builds the tracing settings from the application configuration
func DBTracingConfigFrom(cfg config.TelemetryConfig, driver string) DBTracingConfig {
	c := DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBName:          driver,
	}
	if c.SlowQueryThresh <= 0 {
		c.SlowQueryThresh = 200 * time.Millisecond
	}
	return c
}

type startKey struct{}

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

type hook struct {
	op            string
	before, after registrar
}

// gormHooks returns the positions around every builtin GORM callback
func gormHooks(db *gorm.DB) []hook {
	cb := db.Callback()
	return []hook{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
}

// registerTimed registers before and after callbacks named prefix:operation
// around every builtin GORM callback. before stores the start time in the
// statement context.
func registerTimed(db *gorm.DB, prefix string, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	for _, h := range gormHooks(db) {
		op := h.op
		if err := h.before.Register(prefix+":before_"+op, func(db *gorm.DB) {
			if db.Statement.Context != nil {
				db.Statement.Context = context.WithValue(db.Statement.Context, startKey{}, time.Now())
			}
		}); err != nil {
			return err
		}
		if err := h.after.Register(prefix+":after_"+op, func(db *gorm.DB) {
			var elapsed time.Duration
			if db.Statement.Context != nil {
				if start, ok := db.Statement.Context.Value(startKey{}).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			after(db, op, elapsed)
		}); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDBTracing installs otelgorm and marks slow or failed statements
// on their spans
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := registerTimed(db, "otel_slow_query", func(db *gorm.DB, _ string, elapsed time.Duration) {
		annotateSpan(db, elapsed, cfg.SlowQueryThresh)
	}); err != nil {
		return err
	}
	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func annotateSpan(db *gorm.DB, elapsed, threshold time.Duration) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
