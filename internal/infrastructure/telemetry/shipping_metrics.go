package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ShippingMetrics records the health of shipment creation and of the live
// event stream. All methods are safe to call on a nil receiver.
type ShippingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	shipmentsCreated *Counter
	entitiesInserted *Counter
	createFailures   *Counter
	eventsPublished  *Counter
	subscriberLag    *Counter

	// Histogram metrics
	createDuration *Histogram

	// Gauge metrics (point-in-time values)
	streamClients *Gauge
}

// ShippingMetricsConfig holds configuration for shipping metrics.
type ShippingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// Entity labels used with RecordEntitiesInserted
const (
	EntityShipment  = "shipment"
	EntityDewar     = "dewar"
	EntityContainer = "container"
	EntitySample    = "sample"
)

// NewShippingMetrics creates the shipping instruments on cfg.Meter.
func NewShippingMetrics(cfg ShippingMetricsConfig) (*ShippingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &ShippingMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	if sm.shipmentsCreated, err = NewCounter(cfg.Meter,
		"shipping_shipments_created_total",
		"Total number of shipments created",
		"{shipments}",
	); err != nil {
		return nil, err
	}
	if sm.entitiesInserted, err = NewCounter(cfg.Meter,
		"shipping_entities_inserted_total",
		"Total number of rows inserted while creating shipment trees",
		"{rows}",
	); err != nil {
		return nil, err
	}
	if sm.createFailures, err = NewCounter(cfg.Meter,
		"shipping_create_failures_total",
		"Total number of failed shipment creations",
		"{failures}",
	); err != nil {
		return nil, err
	}
	if sm.eventsPublished, err = NewCounter(cfg.Meter,
		"shipping_events_published_total",
		"Total number of shipment events published to the broker",
		"{events}",
	); err != nil {
		return nil, err
	}
	if sm.subscriberLag, err = NewCounter(cfg.Meter,
		"shipping_subscriber_lag_events_total",
		"Total number of events skipped by lagging subscribers",
		"{events}",
	); err != nil {
		return nil, err
	}
	if sm.createDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "shipping_create_duration_seconds",
		Description: "Duration of shipment tree creation",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if sm.streamClients, err = NewGauge(cfg.Meter,
		"shipping_stream_clients",
		"Number of connected live shipment stream clients",
		"{clients}",
	); err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordShipmentCreated records a successful create and how long it took.
func (sm *ShippingMetrics) RecordShipmentCreated(ctx context.Context, d time.Duration) {
	if sm == nil {
		return
	}
	sm.shipmentsCreated.Inc(ctx)
	sm.createDuration.RecordDuration(ctx, d, AttrOutcome.String("success"))
}

// RecordEntitiesInserted adds n inserted rows of the given entity kind.
func (sm *ShippingMetrics) RecordEntitiesInserted(ctx context.Context, entity string, n int) {
	if sm == nil || n == 0 {
		return
	}
	sm.entitiesInserted.Add(ctx, int64(n), AttrEntity.String(entity))
}

// RecordCreateFailed records a failed create labelled with its error code.
func (sm *ShippingMetrics) RecordCreateFailed(ctx context.Context, code string, d time.Duration) {
	if sm == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	sm.createFailures.Inc(ctx, AttrErrorCode.String(code))
	sm.createDuration.RecordDuration(ctx, d, AttrOutcome.String("failure"))
}

// RecordEventPublished records an event handed to the broker.
func (sm *ShippingMetrics) RecordEventPublished(ctx context.Context, eventType string) {
	if sm == nil {
		return
	}
	sm.eventsPublished.Inc(ctx, AttrEventType.String(eventType))
}

// RecordSubscriberLag records events skipped by a lagging subscriber.
func (sm *ShippingMetrics) RecordSubscriberLag(ctx context.Context, consumer string, skipped uint64) {
	if sm == nil {
		return
	}
	sm.subscriberLag.Add(ctx, int64(skipped), AttrConsumer.String(consumer))
}

// RecordStreamClients records the current number of stream clients per transport.
func (sm *ShippingMetrics) RecordStreamClients(ctx context.Context, transport string, n int) {
	if sm == nil {
		return
	}
	sm.streamClients.Record(ctx, int64(n), AttrTransport.String(transport))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewShippingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Shipping metrics attribute keys
var (
	AttrEntity    = attribute.Key("entity")
	AttrErrorCode = attribute.Key("error_code")
	AttrOutcome   = attribute.Key("outcome")
	AttrEventType = attribute.Key("event_type")
	AttrConsumer  = attribute.Key("consumer")
	AttrTransport = attribute.Key("transport")
)
