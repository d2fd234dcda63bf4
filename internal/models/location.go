package models

import (
	"time"
)

// Location is a GeoJSON point. Coordinates are stored [longitude, latitude]
// so MongoDB geospatial indexes can be used directly.
type Location struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

func NewPoint(lat, lng float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
		Timestamp:   time.Now(),
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

func (l Location) IsZero() bool {
	return len(l.Coordinates) != 2
}
