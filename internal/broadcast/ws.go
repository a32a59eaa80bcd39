package broadcast

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/auth"
	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/metrics"
	"github.com/zoransi/split-laundry-express/internal/protocol"
)

// OrderAccess decides whether a user may join an order's channel.
type OrderAccess interface {
	AuthorizeOrder(ctx context.Context, user *domain.User, orderID string) error
}

type HandlerConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
	// IdleTimeout closes connections that send nothing, not even a ping.
	IdleTimeout    time.Duration
	MaxMessageSize int64
}

func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		QueueSize:      DefaultQueueSize,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Handler serves the order event channel over websocket.
type Handler struct {
	hub      *Hub
	access   OrderAccess
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewHandler(hub *Hub, access OrderAccess, cfg HandlerConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		hub:    hub,
		access: access,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConn(h.cfg.QueueSize)
	metrics.LiveConnections.Inc()
	h.logger.Infow("live connection opened", "connection_id", conn.ID(), "user_id", user.ID)

	go h.writeLoop(ws, conn)
	h.readLoop(r.Context(), ws, conn, user)

	h.hub.Drop(conn)
	metrics.LiveConnections.Dec()
	h.logger.Infow("live connection closed", "connection_id", conn.ID(), "user_id", user.ID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conn *Conn, user *domain.User) {
	defer ws.Close()

	ws.SetReadLimit(h.cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnw("live connection read failed", "connection_id", conn.ID(), "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))

		msg, err := protocol.Decode(data)
		if err != nil {
			conn.Send(protocol.Error("%v", err))
			continue
		}

		if !h.handleFrame(ctx, conn, user, msg) {
			return
		}
	}
}

// handleFrame applies one client frame and reports whether the connection
// is still usable.
func (h *Handler) handleFrame(ctx context.Context, conn *Conn, user *domain.User, msg protocol.Message) bool {
	switch msg.Type {
	case protocol.TypeJoin:
		if err := h.access.AuthorizeOrder(ctx, user, msg.OrderID); err != nil {
			h.logger.Infow("join rejected", "connection_id", conn.ID(), "order_id", msg.OrderID, "error", err)
			return conn.Send(protocol.Error("cannot join order %s: %v", msg.OrderID, err))
		}
		if err := h.hub.Subscribe(conn, msg.OrderID); err != nil {
			return false
		}
		h.logger.Infow("joined order channel", "connection_id", conn.ID(), "order_id", msg.OrderID)
	case protocol.TypeLeave:
		h.hub.Unsubscribe(conn, msg.OrderID)
		h.logger.Infow("left order channel", "connection_id", conn.ID(), "order_id", msg.OrderID)
	case protocol.TypePing:
		return conn.Send(protocol.Pong(msg.ID))
	default:
		return conn.Send(protocol.Error("unexpected %s frame from client", msg.Type))
	}
	return !conn.Closed()
}

func (h *Handler) writeLoop(ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(h.cfg.IdleTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case msg := <-conn.Outbound():
			// events queued before a leave are not delivered after it
			if msg.IsStatusUpdate() && !conn.Joined(msg.OrderID) {
				continue
			}
			data, err := protocol.Encode(msg)
			if err != nil {
				h.logger.Errorw("failed to encode frame", "connection_id", conn.ID(), "error", err)
				continue
			}
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-conn.Done():
			_ = ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "connection closed by server"),
				time.Now().Add(h.cfg.WriteTimeout),
			)
			return
		}
	}
}
