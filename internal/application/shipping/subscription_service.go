package shipping

import (
	"context"
	"errors"
	"iter"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// SubscriptionService adapts the raw shipment event stream for remote observers
type SubscriptionService struct {
	source  shared.EventSource[*shipping.ShipmentEvent]
	logger  *zap.Logger
	metrics *telemetry.ShippingMetrics
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(source shared.EventSource[*shipping.ShipmentEvent], logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{source: source, logger: logger}
}

// SetShippingMetrics sets the metrics recorder (optional)
func (s *SubscriptionService) SetShippingMetrics(m *telemetry.ShippingMetrics) {
	s.metrics = m
}

// ShipmentCreated subscribes immediately and returns the shipments created
// from now on. Lag errors and other mutations are skipped. The sequence is
// single-use and ends when ctx is done or the consumer stops ranging; the
// subscription is released in both cases.
func (s *SubscriptionService) ShipmentCreated(ctx context.Context) iter.Seq[ShipmentResponse] {
	stream := s.source.Subscribe()
	stop := context.AfterFunc(ctx, stream.Close)

	return func(yield func(ShipmentResponse) bool) {
		defer func() {
			stop()
			stream.Close()
		}()

		for event, err := range stream.All(ctx) {
			if err != nil {
				var lag *shared.LagError
				if errors.As(err, &lag) {
					s.logger.Warn("shipment subscriber lagged",
						zap.Uint64("skipped", lag.Skipped),
					)
					s.metrics.RecordSubscriberLag(ctx, "subscription", lag.Skipped)
				}
				continue
			}
			if event == nil || event.Mutation != shipping.MutationCreated {
				continue
			}
			if !yield(ToShipmentResponse(&event.Shipment)) {
				return
			}
		}
	}
}
