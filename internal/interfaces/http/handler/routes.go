package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shipping/backend/internal/interfaces/http/router"
)

// Handlers bundles the API handlers for route registration
type Handlers struct {
	Shipments *ShipmentHandler
	Catalog   *CatalogHandler
	Stream    *ShipmentStreamHandler
	WS        *ShipmentWSHandler
	Health    *HealthHandler
}

// Register mounts every route on engine and returns the API router
func (h *Handlers) Register(engine *gin.Engine) *router.Router {
	engine.GET("/health", h.Health.Health)
	engine.GET("/ws", h.WS.Serve)

	shipments := router.NewDomainGroup("shipments", "/shipments")
	shipments.POST("", h.Shipments.Create)
	shipments.GET("", h.Shipments.List)
	shipments.GET("/stream", h.Stream.Stream)
	shipments.GET("/:id", h.Shipments.Get)
	shipments.GET("/:id/manifest", h.Shipments.GetManifest)

	catalog := router.NewDomainGroup("catalog", "")
	catalog.GET("/dewars", h.Catalog.ListDewars)
	catalog.GET("/containers", h.Catalog.ListContainers)
	catalog.GET("/pucks", h.Catalog.ListPucks)
	catalog.GET("/pins", h.Catalog.ListPins)
	catalog.GET("/proposals", h.Catalog.ListProposals)
	catalog.GET("/proposals/:id", h.Catalog.GetProposal)
	catalog.GET("/people", h.Catalog.ListPeople)

	r := router.NewRouter(engine).
		Register(shipments).
		Register(catalog)
	r.Setup()
	return r
}
