package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the confirmed service engagement created as a side effect of a
// dispatch. RequestID doubles as the idempotency key: at most one booking
// exists per emergency request.
type Booking struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	BookingNumber     string              `json:"booking_number" bson:"booking_number"`
	RequestID         primitive.ObjectID  `json:"request_id" bson:"request_id" validate:"required"`
	RequesterID       primitive.ObjectID  `json:"requester_id" bson:"requester_id" validate:"required"`
	ProviderID        primitive.ObjectID  `json:"provider_id" bson:"provider_id" validate:"required"`
	VehicleID         *primitive.ObjectID `json:"vehicle_id" bson:"vehicle_id"`
	IsEmergency       bool                `json:"is_emergency" bson:"is_emergency"`
	EmergencyLocation *Location           `json:"emergency_location" bson:"emergency_location"`
	Status            BookingStatus       `json:"status" bson:"status" default:"confirmed"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" bson:"updated_at"`
}
