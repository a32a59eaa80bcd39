package domain

import "fmt"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPickedUp   OrderStatus = "picked_up"
	OrderStatusCleaning   OrderStatus = "cleaning"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// statusRank orders the forward lifecycle. Cancelled sits above every
// non-terminal status so that it can never be followed by an older one.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusPickedUp:   2,
	OrderStatusCleaning:   3,
	OrderStatusReady:      4,
	OrderStatusDelivered:  5,
	OrderStatusCancelled:  5,
}

// ForwardStatuses lists the lifecycle in order, without cancelled.
var ForwardStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPickedUp,
	OrderStatusCleaning,
	OrderStatusReady,
	OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// ParseOrderStatus converts user input into a known status.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	if !status.Valid() {
		return "", ValidationError("unknown order status %q", raw)
	}
	return status, nil
}

// ValidateTransition checks whether an order in status from may move to status to.
// Any forward status or cancelled is accepted from a non-terminal status.
func ValidateTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return ValidationError("unknown order status %q", to)
	}

	if from == OrderStatusDelivered && to == OrderStatusCancelled {
		return InvalidTransitionError("cannot cancel a delivered order")
	}

	if from.Terminal() {
		return InvalidTransitionError("order is already %s", from)
	}

	if to == OrderStatusCancelled {
		return nil
	}

	if statusRank[to] <= statusRank[from] {
		return InvalidTransitionError("cannot move order from %s to %s", from, to)
	}

	return nil
}

// CanTransition reports whether ValidateTransition accepts the move.
func CanTransition(from, to OrderStatus) bool {
	return ValidateTransition(from, to) == nil
}

// Supersedes reports whether next may replace current in a view of the order.
func Supersedes(next, current OrderStatus) bool {
	if current == "" {
		return next.Valid()
	}
	return CanTransition(current, next)
}

// StatusMessage is the human readable line shown on a timeline entry.
func StatusMessage(s OrderStatus) string {
	switch s {
	case OrderStatusPending:
		return "Your order has been received"
	case OrderStatusProcessing:
		return "Your order is being processed"
	case OrderStatusPickedUp:
		return "Your laundry has been picked up"
	case OrderStatusCleaning:
		return "Your laundry is being cleaned"
	case OrderStatusReady:
		return "Your laundry is ready for delivery"
	case OrderStatusDelivered:
		return "Your order has been delivered"
	case OrderStatusCancelled:
		return "Your order has been cancelled"
	default:
		return fmt.Sprintf("Status: %s", s)
	}
}
