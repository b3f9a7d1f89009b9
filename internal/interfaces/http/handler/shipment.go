package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	shippingapp "github.com/shipping/backend/internal/application/shipping"
	"github.com/shipping/backend/internal/infrastructure/logger"
	"github.com/shipping/backend/internal/infrastructure/storage"
	"github.com/shipping/backend/internal/interfaces/http/dto"
	"github.com/shipping/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ManifestReader reads previously exported shipment manifests
type ManifestReader interface {
	GetManifest(ctx context.Context, key string) ([]byte, error)
}

// ShipmentHandler serves shipment creation and the shipment read endpoints
type ShipmentHandler struct {
	BaseHandler
	service   *shippingapp.ShipmentService
	queries   *shippingapp.QueryService
	manifests ManifestReader
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(service *shippingapp.ShipmentService, queries *shippingapp.QueryService) *ShipmentHandler {
	return &ShipmentHandler{
		service: service,
		queries: queries,
	}
}

// WithManifestReader makes GetManifest prefer the exported manifest over
// building one from the database
func (h *ShipmentHandler) WithManifestReader(r ManifestReader) *ShipmentHandler {
	h.manifests = r
	return h
}

// Create creates a shipment together with its dewars, containers and samples.
// POST /shipments
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req shippingapp.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// List lists shipments, optionally filtered by proposal_id.
// GET /shipments
func (h *ShipmentHandler) List(c *gin.Context) {
	proposalID, ok := h.optionalID(c, "proposal_id")
	if !ok {
		return
	}

	shipments, err := h.queries.ListShipments(c.Request.Context(), proposalID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(shipments))
}

// Get returns a shipment with its proposal.
// GET /shipments/:id
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	shipment, err := h.queries.GetShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, shipment)
}

// GetManifest returns the packing list of a shipment.
// GET /shipments/:id/manifest
func (h *ShipmentHandler) GetManifest(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if h.manifests != nil {
		body, err := h.manifests.GetManifest(ctx, shippingapp.ManifestKey(id))
		switch {
		case err == nil && json.Valid(body):
			h.Success(c, json.RawMessage(body))
			return
		case err != nil && !errors.Is(err, storage.ErrManifestNotFound):
			logger.GetGinLogger(c).Warn("exported manifest unavailable, building from database",
				zap.Uint32("shipment_id", id),
				zap.Error(err),
			)
		}
	}

	manifest, err := h.queries.BuildManifest(ctx, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, manifest)
}
