package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatusAudit is one entry of an order's status history.
type OrderStatusAudit struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   string             `bson:"order_id" json:"order_id"`
	EventType string             `bson:"event_type" json:"event_type"`
	OldStatus OrderStatus        `bson:"old_status,omitempty" json:"old_status,omitempty"`
	NewStatus OrderStatus        `bson:"new_status" json:"new_status"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
	UserID    string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
