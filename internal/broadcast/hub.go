package broadcast

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/metrics"
	"github.com/zoransi/split-laundry-express/internal/protocol"
)

const DefaultQueueSize = 64

var ErrConnClosed = errors.New("connection closed")

// Hub maps order ids to the connections subscribed to them. Each order has
// its own lock so that different orders never contend.
type Hub struct {
	rooms  sync.Map // order id -> *room
	logger *zap.SugaredLogger
}

type room struct {
	mu   sync.Mutex
	subs map[*Conn]struct{}
	// dead rooms have been removed from the map and must not be reused.
	dead bool
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{logger: logger}
}

func (h *Hub) room(orderID string) *room {
	if r, ok := h.rooms.Load(orderID); ok {
		return r.(*room)
	}
	r, _ := h.rooms.LoadOrStore(orderID, &room{subs: make(map[*Conn]struct{})})
	return r.(*room)
}

// Subscribe adds conn to the order's channel. Subscribing twice is a no-op.
func (h *Hub) Subscribe(conn *Conn, orderID string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	if conn.closed || conn.Closed() {
		return ErrConnClosed
	}
	if _, ok := conn.orders[orderID]; ok {
		return nil
	}

	for {
		r := h.room(orderID)
		r.mu.Lock()
		if r.dead {
			r.mu.Unlock()
			continue
		}
		r.subs[conn] = struct{}{}
		r.mu.Unlock()
		break
	}

	conn.orders[orderID] = struct{}{}
	metrics.LiveSubscriptions.Inc()
	return nil
}

// Unsubscribe removes conn from the order's channel. Removing a missing pair
// is a no-op.
func (h *Hub) Unsubscribe(conn *Conn, orderID string) {
	conn.mu.Lock()
	defer conn.mu.Unlock()

	if _, ok := conn.orders[orderID]; !ok {
		return
	}
	delete(conn.orders, orderID)
	h.leave(conn, orderID)
}

func (h *Hub) leave(conn *Conn, orderID string) {
	v, ok := h.rooms.Load(orderID)
	if !ok {
		return
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[conn]; !ok {
		return
	}
	delete(r.subs, conn)
	metrics.LiveSubscriptions.Dec()

	if len(r.subs) == 0 {
		r.dead = true
		h.rooms.CompareAndDelete(orderID, r)
	}
}

// Drop removes conn from every channel and closes it.
func (h *Hub) Drop(conn *Conn) {
	conn.mu.Lock()
	conn.closed = true
	orders := make([]string, 0, len(conn.orders))
	for id := range conn.orders {
		orders = append(orders, id)
	}
	conn.orders = make(map[string]struct{})
	conn.mu.Unlock()

	for _, orderID := range orders {
		h.leave(conn, orderID)
	}
	conn.Close()
}

// Publish delivers msg to every connection subscribed to orderID at the time
// of the call and returns how many accepted it. Nothing is kept for later
// subscribers.
func (h *Hub) Publish(orderID string, msg protocol.Message) int {
	metrics.LiveEventsPublishedTotal.Inc()

	v, ok := h.rooms.Load(orderID)
	if !ok {
		return 0
	}
	r := v.(*room)

	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for conn := range r.subs {
		if conn.Send(msg) {
			delivered++
			continue
		}
		metrics.LiveEventsDroppedTotal.Inc()
		h.logger.Warnw("dropping live connection with full outbound queue",
			"connection_id", conn.ID(),
			"order_id", orderID,
		)
	}
	metrics.LiveEventsDeliveredTotal.Add(float64(delivered))
	return delivered
}

// PublishEvent converts a status event to its frame and publishes it on the
// event's order channel.
func (h *Hub) PublishEvent(event domain.StatusEvent) int {
	return h.Publish(event.OrderID, protocol.FromEvent(event))
}

// Subscribers returns the number of connections subscribed to orderID.
func (h *Hub) Subscribers(orderID string) int {
	v, ok := h.rooms.Load(orderID)
	if !ok {
		return 0
	}
	r := v.(*room)
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// ActiveOrders returns the number of orders with at least one subscriber.
func (h *Hub) ActiveOrders() int {
	n := 0
	h.rooms.Range(func(_, v any) bool {
		r := v.(*room)
		r.mu.Lock()
		if len(r.subs) > 0 {
			n++
		}
		r.mu.Unlock()
		return true
	})
	return n
}
