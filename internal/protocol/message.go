// Package protocol defines the frames exchanged on the order event channel.
//
// Clients send join, leave and ping frames; the server answers pings with
// pong and pushes status_changed / order_cancelled frames for every order
// the connection has joined.
package protocol

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/zoransi/split-laundry-express/internal/domain"
)

type Type string

const (
	TypeJoin           Type = "join"
	TypeLeave          Type = "leave"
	TypePing           Type = "ping"
	TypePong           Type = "pong"
	TypeStatusChanged  Type = "status_changed"
	TypeOrderCancelled Type = "order_cancelled"
	TypeError          Type = "error"
)

type Message struct {
	Type      Type               `json:"type"`
	ID        string             `json:"id,omitempty"`
	OrderID   string             `json:"orderId,omitempty"`
	Status    domain.OrderStatus `json:"status,omitempty"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func Join(orderID string) Message {
	return Message{Type: TypeJoin, OrderID: orderID}
}

func Leave(orderID string) Message {
	return Message{Type: TypeLeave, OrderID: orderID}
}

func Ping(id string) Message {
	return Message{Type: TypePing, ID: id}
}

func Pong(id string) Message {
	return Message{Type: TypePong, ID: id}
}

func Error(format string, args ...interface{}) Message {
	return Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// FromEvent converts a status event into the frame pushed to subscribers.
func FromEvent(event domain.StatusEvent) Message {
	msgType := TypeStatusChanged
	if event.NewStatus == domain.OrderStatusCancelled {
		msgType = TypeOrderCancelled
	}
	at := event.Timestamp
	return Message{
		Type:      msgType,
		OrderID:   event.OrderID,
		Status:    event.NewStatus,
		UpdatedAt: &at,
	}
}

// IsStatusUpdate reports whether the frame carries an order status.
func (m Message) IsStatusUpdate() bool {
	return m.Type == TypeStatusChanged || m.Type == TypeOrderCancelled
}

func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", msg.Type, err)
	}
	return data, nil
}

func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Validate checks the fields each frame type requires.
func (m Message) Validate() error {
	switch m.Type {
	case TypeJoin, TypeLeave:
		if m.OrderID == "" {
			return fmt.Errorf("%s frame requires orderId", m.Type)
		}
	case TypePing, TypePong:
		if m.ID == "" {
			return fmt.Errorf("%s frame requires id", m.Type)
		}
	case TypeStatusChanged, TypeOrderCancelled:
		if m.OrderID == "" || !m.Status.Valid() {
			return fmt.Errorf("%s frame requires orderId and a known status", m.Type)
		}
	case TypeError:
	default:
		return fmt.Errorf("unknown frame type %q", m.Type)
	}
	return nil
}
