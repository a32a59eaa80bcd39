package domain

import "time"

// StatusEvent is published once for every accepted order status transition.
type StatusEvent struct {
	EventType string      `json:"event_type"`
	OrderID   string      `json:"order_id"`
	OldStatus OrderStatus `json:"old_status,omitempty"`
	NewStatus OrderStatus `json:"new_status"`
	Reason    string      `json:"reason,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
)

// EventTypeFor picks the event type emitted for a transition into status.
func EventTypeFor(status OrderStatus) string {
	if status == OrderStatusCancelled {
		return EventOrderCancelled
	}
	return EventOrderStatusChanged
}

type CatalogImportMessage struct {
	TaskID        string `json:"task_id"`
	SpreadsheetID string `json:"spreadsheet_id"`
	CatalogName   string `json:"catalog_name"`
}
