package broadcast

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zoransi/split-laundry-express/internal/domain"
	"github.com/zoransi/split-laundry-express/internal/protocol"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop().Sugar())
}

func statusFrame(orderID string, status domain.OrderStatus) protocol.Message {
	return protocol.FromEvent(domain.StatusEvent{
		OrderID:   orderID,
		NewStatus: status,
		Timestamp: time.Now(),
	})
}

func drain(c *Conn) []protocol.Message {
	var msgs []protocol.Message
	for {
		select {
		case msg := <-c.Outbound():
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	hub := newTestHub()
	a, b, other := NewConn(8), NewConn(8), NewConn(8)

	require.NoError(t, hub.Subscribe(a, "X"))
	require.NoError(t, hub.Subscribe(b, "X"))
	require.NoError(t, hub.Subscribe(other, "Y"))

	delivered := hub.Publish("X", statusFrame("X", domain.OrderStatusProcessing))
	assert.Equal(t, 2, delivered)

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(other))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := newTestHub()
	c := NewConn(8)

	require.NoError(t, hub.Subscribe(c, "X"))
	require.NoError(t, hub.Subscribe(c, "X"))
	assert.Equal(t, 1, hub.Subscribers("X"))

	hub.Publish("X", statusFrame("X", domain.OrderStatusProcessing))
	assert.Len(t, drain(c), 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub()
	c := NewConn(8)

	require.NoError(t, hub.Subscribe(c, "X"))
	hub.Unsubscribe(c, "X")
	hub.Unsubscribe(c, "X")
	hub.Unsubscribe(c, "never-joined")

	assert.Equal(t, 0, hub.Publish("X", statusFrame("X", domain.OrderStatusProcessing)))
	assert.Empty(t, drain(c))
	assert.False(t, c.Joined("X"))
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := newTestHub()
	assert.Equal(t, 0, hub.Publish("nobody", statusFrame("nobody", domain.OrderStatusReady)))

	// a later subscriber does not see earlier events
	c := NewConn(8)
	require.NoError(t, hub.Subscribe(c, "nobody"))
	assert.Empty(t, drain(c))
}

func TestDropRemovesAllSubscriptions(t *testing.T) {
	hub := newTestHub()
	c := NewConn(8)

	require.NoError(t, hub.Subscribe(c, "X"))
	require.NoError(t, hub.Subscribe(c, "Y"))
	assert.Equal(t, 2, hub.ActiveOrders())
	hub.Drop(c)

	assert.Zero(t, hub.ActiveOrders())
	assert.Equal(t, 0, hub.Subscribers("X"))
	assert.Equal(t, 0, hub.Subscribers("Y"))
	assert.True(t, c.Closed())
	assert.ErrorIs(t, hub.Subscribe(c, "Z"), ErrConnClosed)
}

func TestPerConnectionOrderIsPreserved(t *testing.T) {
	hub := newTestHub()
	c := NewConn(16)
	require.NoError(t, hub.Subscribe(c, "X"))

	statuses := []domain.OrderStatus{
		domain.OrderStatusProcessing,
		domain.OrderStatusPickedUp,
		domain.OrderStatusCleaning,
		domain.OrderStatusReady,
		domain.OrderStatusDelivered,
	}
	for _, s := range statuses {
		hub.Publish("X", statusFrame("X", s))
	}

	msgs := drain(c)
	require.Len(t, msgs, len(statuses))
	for i, msg := range msgs {
		assert.Equal(t, statuses[i], msg.Status)
	}
}

func TestOverflowClosesConnection(t *testing.T) {
	hub := newTestHub()
	c := NewConn(2)
	require.NoError(t, hub.Subscribe(c, "X"))

	hub.Publish("X", statusFrame("X", domain.OrderStatusProcessing))
	hub.Publish("X", statusFrame("X", domain.OrderStatusPickedUp))
	assert.False(t, c.Closed())

	assert.Equal(t, 0, hub.Publish("X", statusFrame("X", domain.OrderStatusCleaning)))
	assert.True(t, c.Closed())
}

func TestConcurrentSubscribersOnManyOrders(t *testing.T) {
	hub := newTestHub()
	const orders = 20
	const connsPerOrder = 10

	var wg sync.WaitGroup
	conns := make([][]*Conn, orders)
	for i := 0; i < orders; i++ {
		conns[i] = make([]*Conn, connsPerOrder)
		for j := 0; j < connsPerOrder; j++ {
			conns[i][j] = NewConn(8)
		}
	}

	for i := 0; i < orders; i++ {
		for j := 0; j < connsPerOrder; j++ {
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				orderID := fmt.Sprintf("order-%d", i)
				_ = hub.Subscribe(conns[i][j], orderID)
				hub.Unsubscribe(conns[i][j], orderID)
				_ = hub.Subscribe(conns[i][j], orderID)
			}(i, j)
		}
	}
	wg.Wait()

	for i := 0; i < orders; i++ {
		orderID := fmt.Sprintf("order-%d", i)
		assert.Equal(t, connsPerOrder, hub.Subscribers(orderID))
		assert.Equal(t, connsPerOrder, hub.Publish(orderID, statusFrame(orderID, domain.OrderStatusReady)))
	}
}
