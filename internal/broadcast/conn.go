package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

// Conn is the outbound side of one live connection. Frames are queued in
// publish order and drained by a single writer.
type Conn struct {
	id  string
	out chan protocol.Message

	mu     sync.Mutex
	orders map[string]struct{}
	closed bool

	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Conn{
		id:     uuid.NewString(),
		out:    make(chan protocol.Message, queueSize),
		orders: make(map[string]struct{}),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Outbound() <-chan protocol.Message {
	return c.out
}

// Done is closed once the connection is closed, either by its owner or
// because its outbound queue overflowed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Joined reports whether the connection is currently subscribed to orderID.
func (c *Conn) Joined(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.orders[orderID]
	return ok
}

// Send queues msg without blocking. A full queue closes the connection and
// reports false.
func (c *Conn) Send(msg protocol.Message) bool {
	if c.Closed() {
		return false
	}
	select {
	case c.out <- msg:
		return true
	default:
		c.Close()
		return false
	}
}
