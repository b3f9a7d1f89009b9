package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	shippingapp "github.com/shipping/backend/internal/application/shipping"
	"github.com/shipping/backend/internal/interfaces/http/dto"
)

// CatalogHandler serves the read-only listings below and around shipments:
// dewars, containers, pucks, pins, proposals and people
type CatalogHandler struct {
	BaseHandler
	queries *shippingapp.QueryService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(queries *shippingapp.QueryService) *CatalogHandler {
	return &CatalogHandler{queries: queries}
}

// ListDewars handles GET /dewars?shipment_id=
func (h *CatalogHandler) ListDewars(c *gin.Context) {
	serveList(h, c, "shipment_id", h.queries.ListDewars)
}

// ListContainers handles GET /containers?dewar_id=
func (h *CatalogHandler) ListContainers(c *gin.Context) {
	serveList(h, c, "dewar_id", h.queries.ListContainers)
}

// ListPucks handles GET /pucks?dewar_id=
func (h *CatalogHandler) ListPucks(c *gin.Context) {
	serveList(h, c, "dewar_id", h.queries.ListPucks)
}

// ListPins handles GET /pins?puck_id=
func (h *CatalogHandler) ListPins(c *gin.Context) {
	serveList(h, c, "puck_id", h.queries.ListPins)
}

// ListProposals handles GET /proposals?id=
func (h *CatalogHandler) ListProposals(c *gin.Context) {
	serveList(h, c, "id", h.queries.ListProposals)
}

// GetProposal handles GET /proposals/:id
func (h *CatalogHandler) GetProposal(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	proposal, err := h.queries.GetProposal(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, proposal)
}

// ListPeople handles GET /people?id=
func (h *CatalogHandler) ListPeople(c *gin.Context) {
	serveList(h, c, "id", h.queries.ListPeople)
}

// serveList runs a filtered list query and writes the list envelope
func serveList[T any](h *CatalogHandler, c *gin.Context, param string, list func(context.Context, *uint32) ([]T, error)) {
	filter, ok := h.optionalID(c, param)
	if !ok {
		return
	}

	items, err := list(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(items))
}
