package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	shippingapp "github.com/shipping/backend/internal/application/shipping"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
	"github.com/shipping/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsReadLimit  = 512
)

// ShipmentWSHandler streams created shipments over WebSocket, one JSON text
// frame per shipment. Messages sent by the client are ignored.
type ShipmentWSHandler struct {
	BaseHandler
	subscriptions *shippingapp.SubscriptionService
	upgrader      websocket.Upgrader
	logger        *zap.Logger
	metrics       *telemetry.ShippingMetrics
	clients       clientLimiter
}

// ShipmentWSOption configures a ShipmentWSHandler
type ShipmentWSOption func(*ShipmentWSHandler)

// WithWSLogger sets the logger for the handler
func WithWSLogger(logger *zap.Logger) ShipmentWSOption {
	return func(h *ShipmentWSHandler) {
		h.logger = logger
	}
}

// WithWSCheckOrigin overrides the same-origin check applied to upgrades
func WithWSCheckOrigin(check func(r *http.Request) bool) ShipmentWSOption {
	return func(h *ShipmentWSHandler) {
		h.upgrader.CheckOrigin = check
	}
}

// WithWSMaxClients sets the maximum number of concurrent clients, 0 for no limit
func WithWSMaxClients(max int) ShipmentWSOption {
	return func(h *ShipmentWSHandler) {
		h.clients.max = max
	}
}

// WithWSMetrics records the number of connected clients
func WithWSMetrics(m *telemetry.ShippingMetrics) ShipmentWSOption {
	return func(h *ShipmentWSHandler) {
		h.metrics = m
	}
}

// NewShipmentWSHandler creates a new ShipmentWSHandler
func NewShipmentWSHandler(subscriptions *shippingapp.SubscriptionService, opts ...ShipmentWSOption) *ShipmentWSHandler {
	h := &ShipmentWSHandler{
		subscriptions: subscriptions,
		logger:        zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	h.clients.max = 10000
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *ShipmentWSHandler) ClientCount() int {
	return h.clients.count()
}

// Serve upgrades the request and streams created shipments until either
// side closes the connection.
// GET /ws
func (h *ShipmentWSHandler) Serve(c *gin.Context) {
	n, ok := h.clients.acquire()
	if !ok {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeMaxConnections, "Maximum number of stream connections reached")
		return
	}
	defer func() {
		remaining := h.clients.release()
		h.metrics.RecordStreamClients(context.WithoutCancel(c.Request.Context()), "websocket", remaining)
	}()

	// The hijacked request context is not cancelled on disconnect; the read
	// pump cancels ctx instead. Subscribing ahead of the upgrade means a
	// client sees every shipment created after its handshake completes.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	shipments := h.subscriptions.ShipmentCreated(ctx)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	h.metrics.RecordStreamClients(c.Request.Context(), "websocket", n)
	h.logger.Info("WebSocket client connected", zap.String("client_id", clientID))

	go h.readPump(conn, cancel)
	go h.pingLoop(ctx, conn)

	for shipment := range shipments {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(shipment); err != nil {
			h.logger.Debug("WebSocket write failed",
				zap.String("client_id", clientID),
				zap.Error(err),
			)
			break
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteWait),
	)
	h.logger.Info("WebSocket client disconnected", zap.String("client_id", clientID))
}

// readPump drains client frames so control frames are processed, and
// cancels the stream once the connection fails or closes.
func (h *ShipmentWSHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ShipmentWSHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
