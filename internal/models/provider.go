package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProviderCategory string

const (
	ProviderCategoryTowing     ProviderCategory = "towing"
	ProviderCategoryMechanic   ProviderCategory = "mechanic"
	ProviderCategoryTireShop   ProviderCategory = "tire_shop"
	ProviderCategoryLocksmith  ProviderCategory = "locksmith"
	ProviderCategoryBodyRepair ProviderCategory = "body_repair"
)

// Provider is a roadside service business. The catalog is read-only to the
// dispatch core; records are managed elsewhere.
type Provider struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	Category  ProviderCategory   `json:"category" bson:"category" validate:"required"`
	Address   string             `json:"address" bson:"address"`
	Phone     string             `json:"phone" bson:"phone"`
	Location  *Location          `json:"location" bson:"location"`
	IsActive  bool               `json:"is_active" bson:"is_active" default:"true"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// HasLocation reports whether the provider can participate in distance
// ranking. Providers without coordinates are excluded, not errored on.
func (p *Provider) HasLocation() bool {
	return p.Location != nil && !p.Location.IsZero()
}

// RankedProvider decorates a Provider with its computed straight-line
// distance from the requester. It is ephemeral and never persisted.
type RankedProvider struct {
	Provider      *Provider `json:"provider"`
	DistanceMiles float64   `json:"distance_miles"`
	Rank          int       `json:"rank"`
}

// ProviderSearchResult is the outcome of a nearby-provider search,
// including whether the radius was widened after an empty first pass.
type ProviderSearchResult struct {
	Providers   []*RankedProvider `json:"providers"`
	RadiusMiles float64           `json:"radius_miles"`
	Widened     bool              `json:"widened"`
}
