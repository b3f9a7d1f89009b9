package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	shippingapp "github.com/shipping/backend/internal/application/shipping"
	"github.com/shipping/backend/internal/infrastructure/telemetry"
	"github.com/shipping/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// SSE event names
const (
	SSEEventConnected       = "connected"
	SSEEventHeartbeat       = "heartbeat"
	SSEEventShipmentCreated = "shipment_created"
)

// SSEMessage is one Server-Sent Events frame
type SSEMessage struct {
	Event string
	ID    string
	Data  string
}

// clientLimiter counts connected stream clients against an optional maximum
type clientLimiter struct {
	max int
	n   atomic.Int64
}

// acquire reserves a slot, reporting false when the limit is reached
func (l *clientLimiter) acquire() (int, bool) {
	n := l.n.Add(1)
	if l.max > 0 && n > int64(l.max) {
		l.n.Add(-1)
		return int(n - 1), false
	}
	return int(n), true
}

func (l *clientLimiter) release() int {
	return int(l.n.Add(-1))
}

func (l *clientLimiter) count() int {
	return int(l.n.Load())
}

// ShipmentStreamHandler streams created shipments to Server-Sent Events clients.
// Every client holds its own broker subscription.
type ShipmentStreamHandler struct {
	BaseHandler
	subscriptions *shippingapp.SubscriptionService
	logger        *zap.Logger
	metrics       *telemetry.ShippingMetrics
	heartbeat     time.Duration
	clients       clientLimiter
	done          chan struct{}
	stopOnce      sync.Once
}

// ShipmentStreamOption configures a ShipmentStreamHandler
type ShipmentStreamOption func(*ShipmentStreamHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) ShipmentStreamOption {
	return func(h *ShipmentStreamHandler) {
		h.logger = logger
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) ShipmentStreamOption {
	return func(h *ShipmentStreamHandler) {
		h.heartbeat = interval
	}
}

// WithSSEMaxClients sets the maximum number of concurrent clients, 0 for no limit
func WithSSEMaxClients(max int) ShipmentStreamOption {
	return func(h *ShipmentStreamHandler) {
		h.clients.max = max
	}
}

// WithSSEMetrics records the number of connected clients
func WithSSEMetrics(m *telemetry.ShippingMetrics) ShipmentStreamOption {
	return func(h *ShipmentStreamHandler) {
		h.metrics = m
	}
}

// NewShipmentStreamHandler creates a new ShipmentStreamHandler
func NewShipmentStreamHandler(subscriptions *shippingapp.SubscriptionService, opts ...ShipmentStreamOption) *ShipmentStreamHandler {
	h := &ShipmentStreamHandler{
		subscriptions: subscriptions,
		logger:        zap.NewNop(),
		heartbeat:     30 * time.Second,
		done:          make(chan struct{}),
	}
	h.clients.max = 10000
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stop disconnects every client. It must be called before the HTTP server
// shuts down, since open streams never finish on their own.
func (h *ShipmentStreamHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount returns the number of connected clients
func (h *ShipmentStreamHandler) ClientCount() int {
	return h.clients.count()
}

// Stream subscribes the caller to created shipments.
// GET /shipments/stream
func (h *ShipmentStreamHandler) Stream(c *gin.Context) {
	n, ok := h.clients.acquire()
	if !ok {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeMaxConnections, "Maximum number of stream connections reached")
		return
	}
	clientID := uuid.NewString()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer func() {
		cancel()
		remaining := h.clients.release()
		h.metrics.RecordStreamClients(context.WithoutCancel(ctx), "sse", remaining)
		h.logger.Info("SSE client disconnected", zap.String("client_id", clientID))
	}()
	h.metrics.RecordStreamClients(ctx, "sse", n)

	// Subscribe before announcing the connection so nothing created after
	// "connected" is missed.
	shipments := h.subscriptions.ShipmentCreated(ctx)
	events := make(chan shippingapp.ShipmentResponse)
	go func() {
		defer close(events)
		for shipment := range shipments {
			select {
			case events <- shipment:
			case <-ctx.Done():
				return
			}
		}
	}()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	h.logger.Info("SSE client connected", zap.String("client_id", clientID))
	h.send(c, SSEMessage{
		Event: SSEEventConnected,
		Data:  fmt.Sprintf(`{"client_id":%q,"timestamp":%d}`, clientID, time.Now().Unix()),
	})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			h.send(c, SSEMessage{
				Event: SSEEventHeartbeat,
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		case shipment, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(shipment)
			if err != nil {
				h.logger.Error("Failed to marshal SSE event", zap.Error(err))
				continue
			}
			h.send(c, SSEMessage{
				Event: SSEEventShipmentCreated,
				ID:    strconv.FormatUint(uint64(shipment.ID), 10),
				Data:  string(data),
			})
		}
	}
}

func (h *ShipmentStreamHandler) send(c *gin.Context, msg SSEMessage) {
	writeSSE(c.Writer, msg)
	c.Writer.Flush()
}

// writeSSE writes one event frame
func writeSSE(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
