package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const profileOperationCreate = "shipment.create"

// ShipmentService creates shipment trees and announces them to subscribers.
//
// A create inserts the shipment, then fans out its dewars, each dewar fans
// out its containers and each container its samples. Nothing is rolled back
// on failure: rows written by completed levels stay in the store and no event
// is published for them.
type ShipmentService struct {
	shipments  shipping.ShipmentRepository
	dewars     shipping.DewarRepository
	containers shipping.ContainerRepository
	samples    shipping.SampleRepository
	publisher  shared.EventSink[*shipping.ShipmentEvent]
	logger     *zap.Logger
	metrics    *telemetry.ShippingMetrics
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(
	shipments shipping.ShipmentRepository,
	dewars shipping.DewarRepository,
	containers shipping.ContainerRepository,
	samples shipping.SampleRepository,
	publisher shared.EventSink[*shipping.ShipmentEvent],
	logger *zap.Logger,
) *ShipmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShipmentService{
		shipments:  shipments,
		dewars:     dewars,
		containers: containers,
		samples:    samples,
		publisher:  publisher,
		logger:     logger,
	}
}

// SetShippingMetrics sets the metrics recorder (optional)
func (s *ShipmentService) SetShippingMetrics(m *telemetry.ShippingMetrics) {
	s.metrics = m
}

// Create inserts the shipment and its whole tree, re-reads the stored
// shipment and publishes exactly one CREATED event for it.
func (s *ShipmentService) Create(ctx context.Context, req CreateShipmentRequest) (*CreateShipmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "Create",
		telemetry.WithAttribute(telemetry.SpanAttrProposalID, int64(req.ProposalID)),
		telemetry.WithAttribute(telemetry.SpanAttrDewarCount, len(req.Dewars)),
	)
	defer span.End()
	start := time.Now()

	var resp *CreateShipmentResponse
	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(profileOperationCreate, nil), func(ctx context.Context) {
		resp, err = s.create(ctx, req)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordCreateFailed(ctx, shared.ErrorCode(err), time.Since(start))
		s.logger.Error("shipment creation failed",
			zap.Uint32("proposal_id", req.ProposalID),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrShipmentID, int64(resp.Shipment.ID))
	telemetry.SetOK(span)
	s.metrics.RecordShipmentCreated(ctx, time.Since(start))
	s.logger.Info("shipment created",
		zap.Uint32("shipment_id", resp.Shipment.ID),
		zap.Uint32("proposal_id", resp.Shipment.ProposalID),
		zap.Int("dewars", len(resp.Tree.Children)),
	)
	return resp, nil
}

func (s *ShipmentService) create(ctx context.Context, req CreateShipmentRequest) (*CreateShipmentResponse, error) {
	shipment, err := shipping.NewShipment(req.ProposalID, req.Name, req.Comments)
	if err != nil {
		return nil, err
	}
	if err := validateTree(req.Dewars); err != nil {
		return nil, err
	}

	id, err := s.shipments.Insert(ctx, shipment)
	if err != nil {
		return nil, asPersistenceError("insert", shipping.AggregateTypeShipment, err)
	}
	s.metrics.RecordEntitiesInserted(ctx, telemetry.EntityShipment, 1)

	children, err := FanOut(ctx, id, req.Dewars, profiled(telemetry.EntityDewar, s.insertDewar))
	if err != nil {
		return nil, err
	}

	canonical, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &shared.InconsistentStateError{Entity: shipping.AggregateTypeShipment, ID: id}
		}
		return nil, asPersistenceError("find", shipping.AggregateTypeShipment, err)
	}

	s.publisher.Publish(shipping.NewShipmentCreatedEvent(*canonical))
	s.metrics.RecordEventPublished(ctx, shipping.EventTypeShipmentCreated)

	return &CreateShipmentResponse{
		Shipment: ToShipmentResponse(canonical),
		Tree:     InsertResult{ID: id, Children: children},
	}, nil
}

func (s *ShipmentService) insertDewar(ctx context.Context, shipmentID uint32, in DewarInput) (InsertResult, error) {
	dewar, err := shipping.NewDewar(shipmentID, in.Code)
	if err != nil {
		return InsertResult{}, err
	}
	id, err := s.dewars.Insert(ctx, dewar)
	if err != nil {
		return InsertResult{}, asPersistenceError("insert", "Dewar", err)
	}
	s.metrics.RecordEntitiesInserted(ctx, telemetry.EntityDewar, 1)

	children, err := FanOut(ctx, id, in.Containers, profiled(telemetry.EntityContainer, s.insertContainer))
	if err != nil {
		return InsertResult{}, err
	}
	return InsertResult{ID: id, Children: children}, nil
}

func (s *ShipmentService) insertContainer(ctx context.Context, dewarID uint32, in ContainerInput) (InsertResult, error) {
	container, err := shipping.NewPuck(dewarID, in.Code)
	if err != nil {
		return InsertResult{}, err
	}
	id, err := s.containers.Insert(ctx, container)
	if err != nil {
		return InsertResult{}, asPersistenceError("insert", "Container", err)
	}
	s.metrics.RecordEntitiesInserted(ctx, telemetry.EntityContainer, 1)

	children, err := FanOut(ctx, id, in.Samples, profiled(telemetry.EntitySample, s.insertSample))
	if err != nil {
		return InsertResult{}, err
	}
	return InsertResult{ID: id, Children: children}, nil
}

func (s *ShipmentService) insertSample(ctx context.Context, containerID uint32, in SampleInput) (InsertResult, error) {
	sample, err := shipping.NewSample(containerID, in.Code)
	if err != nil {
		return InsertResult{}, err
	}
	id, err := s.samples.Insert(ctx, sample)
	if err != nil {
		return InsertResult{}, asPersistenceError("insert", "Sample", err)
	}
	s.metrics.RecordEntitiesInserted(ctx, telemetry.EntitySample, 1)
	return InsertResult{ID: id, Children: []InsertResult{}}, nil
}

// profiled runs each insert with its entity as a profiling label, so samples
// from the fan-out goroutines can be told apart per tree level.
func profiled[S any](entity string, insert func(context.Context, uint32, S) (InsertResult, error)) InsertFunc[S, InsertResult] {
	labels := map[string]string{telemetry.ProfilingLabelEntity: entity}
	return func(ctx context.Context, parentID uint32, child S) (result InsertResult, err error) {
		telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
			result, err = insert(ctx, parentID, child)
		})
		return result, err
	}
}

// validateTree rejects a request before anything is written
func validateTree(dewars []DewarInput) error {
	for _, d := range dewars {
		if err := shipping.ValidateCode("Dewar", d.Code); err != nil {
			return err
		}
		for _, c := range d.Containers {
			if err := shipping.ValidateCode("Container", c.Code); err != nil {
				return err
			}
			for _, smp := range c.Samples {
				if err := shipping.ValidateCode("Sample", smp.Code); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// asPersistenceError makes sure store failures surface as *shared.PersistenceError
func asPersistenceError(op, entity string, err error) error {
	var pe *shared.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return shared.NewPersistenceError(op, entity, err)
}
