package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormPluginConfig holds configuration for database instrumentation.
type GormPluginConfig struct {
	TraceEnabled       bool          // Register otelgorm spans
	LogFullSQL         bool          // Keep query variables in span statements
	SlowQueryThreshold time.Duration // Default: 200ms
	DBSystem           string        // Default: "postgresql"
	Meter              metric.Meter  // Query metrics are skipped when nil
	TracerProvider     trace.TracerProvider
}

// GormPlugin records a span, a counter and a latency sample for every GORM
// statement and flags statements slower than the configured threshold.
type GormPlugin struct {
	config GormPluginConfig
	logger *zap.Logger

	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
}

// NewGormPlugin creates the plugin; register it with db.Use.
func NewGormPlugin(cfg GormPluginConfig, logger *zap.Logger) (*GormPlugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	p := &GormPlugin{config: cfg, logger: logger}
	if cfg.Meter == nil {
		return p, nil
	}

	var err error
	if p.queryTotal, err = NewCounter(cfg.Meter,
		"db_query_total",
		"Total number of database queries by operation type",
		"{query}",
	); err != nil {
		return nil, err
	}
	if p.queryDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency distribution in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if p.slowQueryTotal, err = NewCounter(cfg.Meter,
		"db_slow_query_total",
		"Total number of slow database queries",
		"{query}",
	); err != nil {
		return nil, err
	}
	return p, nil
}

// Name implements gorm.Plugin.
func (p *GormPlugin) Name() string {
	return "shipping_telemetry"
}

type queryStartKey struct{}

// Initialize implements gorm.Plugin.
func (p *GormPlugin) Initialize(db *gorm.DB) error {
	if p.config.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
		if !p.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if p.config.TracerProvider != nil {
			opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	hooks := []struct {
		name      string
		operation string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
	}{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("shipping_telemetry:before_"+h.name, p.before); err != nil {
			return err
		}
		operation := h.operation
		if err := h.after("shipping_telemetry:after_"+h.name, func(db *gorm.DB) { p.after(db, operation) }); err != nil {
			return err
		}
	}

	p.logger.Info("Database instrumentation enabled",
		zap.Bool("trace_enabled", p.config.TraceEnabled),
		zap.Bool("metrics_enabled", p.queryTotal != nil),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThreshold),
	)
	return nil
}

func (p *GormPlugin) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (p *GormPlugin) after(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if operation == "" {
		operation = DetectOperation(db.Statement.SQL.String())
	}

	var elapsed time.Duration
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}
	slow := elapsed > p.config.SlowQueryThreshold
	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}

	if p.queryTotal != nil {
		p.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
		p.queryDuration.RecordDuration(ctx, elapsed, AttrDBOperation.String(operation))
		if slow {
			p.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
		}
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("db.sql.table", table),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if slow {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThreshold.Milliseconds()),
		))
	}
}

// DetectOperation returns the leading SQL verb of a statement.
func DetectOperation(statement string) string {
	statement = strings.ToUpper(strings.TrimSpace(statement))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(statement, verb) {
			return verb
		}
	}
	if strings.HasPrefix(statement, "WITH") {
		return "SELECT"
	}
	return "OTHER"
}

// RegisterPoolMetrics reports connection pool usage through an observable gauge.
func RegisterPoolMetrics(meter metric.Meter, sqlDB *sql.DB) (metric.Registration, error) {
	connections, err := meter.Int64ObservableGauge(
		"db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}
	maxConnections, err := meter.Int64ObservableGauge(
		"db_pool_connections_max",
		metric.WithDescription("Maximum number of connections in the pool"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConnections, int64(stats.MaxOpenConnections))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, connections, maxConnections)
}
