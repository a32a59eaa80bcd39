package livefeed

import (
	"context"

	"github.com/zoransi/split-laundry-express/internal/protocol"
)

// Transport is one established connection to the order event channel.
// Receive blocks until a frame arrives or the connection fails; Close
// unblocks it.
type Transport interface {
	Send(msg protocol.Message) error
	Receive() (protocol.Message, error)
	Close() error
}

// Dialer opens transports. Dial must give up when ctx is done.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}
