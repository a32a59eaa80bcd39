package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ServiceStatus string

const (
	ServiceStatusAvailable   ServiceStatus = "available"
	ServiceStatusUnavailable ServiceStatus = "unavailable"
)

// Service is a laundry service offered in the catalog.
type Service struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code          string             `bson:"code" json:"code"`
	Name          string             `bson:"name" json:"name"`
	Category      string             `bson:"category" json:"category"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Price         float64            `bson:"price" json:"price"`
	TimeRequired  int                `bson:"time_required" json:"time_required"`
	IsEcoFriendly bool               `bson:"is_eco_friendly" json:"is_eco_friendly"`
	ImageURL      string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Status        ServiceStatus      `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

type ServiceFilter struct {
	Category      string
	EcoFriendly   bool
	MaxPrice      float64
	OnlyAvailable bool
}
