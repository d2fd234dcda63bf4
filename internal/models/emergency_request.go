package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyType string
type RequestStatus string

const (
	EmergencyTypeTowing      EmergencyType = "towing"
	EmergencyTypeFlatTire    EmergencyType = "flat_tire"
	EmergencyTypeDeadBattery EmergencyType = "dead_battery"
	EmergencyTypeLockout     EmergencyType = "lockout"
	EmergencyTypeAccident    EmergencyType = "accident"

	RequestStatusSearching  RequestStatus = "searching"
	RequestStatusDispatched RequestStatus = "dispatched"
	RequestStatusEnRoute    RequestStatus = "en_route"
	RequestStatusArrived    RequestStatus = "arrived"
	RequestStatusResolved   RequestStatus = "resolved"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// DefaultPriority is a constant severity marker reserved for future triage.
const DefaultPriority = 1

type EmergencyRequest struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RequestNumber string              `json:"request_number" bson:"request_number"`
	RequesterID   primitive.ObjectID  `json:"requester_id" bson:"requester_id" validate:"required"`
	VehicleID     *primitive.ObjectID `json:"vehicle_id" bson:"vehicle_id"`
	Type          EmergencyType       `json:"type" bson:"type" validate:"required"`
	Status        RequestStatus       `json:"status" bson:"status" default:"searching"`
	Location      Location            `json:"location" bson:"location" validate:"required"`
	ProviderID    *primitive.ObjectID `json:"provider_id" bson:"provider_id"`
	Priority      int                 `json:"priority" bson:"priority" default:"1"`
	ETAMinutes    int                 `json:"eta_minutes" bson:"eta_minutes"`
	CreatedAt     time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updated_at"`
	DispatchedAt  *time.Time          `json:"dispatched_at" bson:"dispatched_at"`
	ArrivedAt     *time.Time          `json:"arrived_at" bson:"arrived_at"`
	ResolvedAt    *time.Time          `json:"resolved_at" bson:"resolved_at"`
	CancelledAt   *time.Time          `json:"cancelled_at" bson:"cancelled_at"`
}

var emergencyTypes = map[EmergencyType]bool{
	EmergencyTypeTowing:      true,
	EmergencyTypeFlatTire:    true,
	EmergencyTypeDeadBattery: true,
	EmergencyTypeLockout:     true,
	EmergencyTypeAccident:    true,
}

func (t EmergencyType) Valid() bool {
	return emergencyTypes[t]
}

// successors maps each status to the statuses it may legally advance to.
// Cancellation is handled separately: it is reachable from any non-terminal
// status.
var successors = map[RequestStatus]RequestStatus{
	RequestStatusSearching:  RequestStatusDispatched,
	RequestStatusDispatched: RequestStatusEnRoute,
	RequestStatusEnRoute:    RequestStatusArrived,
	RequestStatusArrived:    RequestStatusResolved,
}

func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusResolved || s == RequestStatusCancelled
}

// CanTransitionTo reports whether target is a legal next status. The
// lifecycle is strictly ordered; no transition skips forward or moves
// backward, and cancelled is reachable from every non-terminal status.
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	if target == RequestStatusCancelled {
		return !s.IsTerminal()
	}
	return successors[s] == target
}

func (r *EmergencyRequest) IsOwnedBy(userID primitive.ObjectID) bool {
	return r.RequesterID == userID
}
