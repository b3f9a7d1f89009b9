package shipping

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shipping/backend/internal/domain/shared"
	"github.com/shipping/backend/internal/domain/shipping"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ManifestStore persists exported shipment manifests
type ManifestStore interface {
	PutManifest(ctx context.Context, key string, body []byte) error
}

// ManifestKey returns the object key a shipment's manifest is stored under
func ManifestKey(shipmentID uint32) string {
	return fmt.Sprintf("shipments/%d/manifest.json", shipmentID)
}

// ManifestExportHandler writes a JSON manifest for every created shipment
type ManifestExportHandler struct {
	queries *QueryService
	store   ManifestStore
	logger  *zap.Logger
}

// NewManifestExportHandler creates a new ManifestExportHandler
func NewManifestExportHandler(queries *QueryService, store ManifestStore, logger *zap.Logger) *ManifestExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManifestExportHandler{queries: queries, store: store, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ManifestExportHandler) EventTypes() []string {
	return []string{shipping.EventTypeShipmentCreated}
}

// Handle builds the manifest of the created shipment and stores it
func (h *ManifestExportHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*shipping.ShipmentEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "manifest", "Export",
		telemetry.WithAttribute(telemetry.SpanAttrShipmentID, int64(e.Shipment.ID)),
	)
	defer span.End()

	manifest, err := h.queries.BuildManifest(ctx, e.Shipment.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("build manifest for shipment %d: %w", e.Shipment.ID, err)
	}

	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	key := ManifestKey(e.Shipment.ID)
	if err := h.store.PutManifest(ctx, key, body); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("store manifest %s: %w", key, err)
	}

	telemetry.SetOK(span)
	h.logger.Info("shipment manifest exported",
		zap.Uint32("shipment_id", e.Shipment.ID),
		zap.String("key", key),
		zap.Int("dewars", len(manifest.Dewars)),
	)
	return nil
}

var _ shared.EventHandler = (*ManifestExportHandler)(nil)
