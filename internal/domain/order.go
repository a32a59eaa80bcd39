package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusFailed PaymentStatus = "failed"
)

type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Status        OrderStatus        `bson:"status" json:"status"`
	Items         []OrderItem        `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"total_amount" json:"total_amount"`
	PaymentStatus PaymentStatus      `bson:"payment_status" json:"payment_status"`
	PaymentMethod string             `bson:"payment_method" json:"payment_method"`
	TransactionID string             `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Customer      CustomerInfo       `bson:"customer_info" json:"customer_info"`
	Pickup        PickupDetails      `bson:"pickup_details" json:"pickup_details"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ServiceID           string  `bson:"service_id" json:"service_id"`
	Name                string  `bson:"name" json:"name"`
	Quantity            int     `bson:"quantity" json:"quantity"`
	Price               float64 `bson:"price" json:"price"`
	SpecialInstructions string  `bson:"special_instructions,omitempty" json:"special_instructions,omitempty"`
}

type CustomerInfo struct {
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email" json:"email"`
	Phone      string `bson:"phone" json:"phone"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
}

type PickupDetails struct {
	Date                string `bson:"date" json:"date"`
	Time                string `bson:"time" json:"time"`
	SpecialInstructions string `bson:"special_instructions,omitempty" json:"special_instructions,omitempty"`
}

// Total sums price*quantity over the order items.
func (o *Order) Total() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
