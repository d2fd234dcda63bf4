package utils

import "time"

// Application Constants
const (
	AppName    = "RoadAssist"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Dispatch Constants
	DefaultSearchRadiusMiles = 10.0
	MaxSearchRadiusMiles     = 25.0
	DefaultETAMinutes        = 30
	AverageProviderSpeedMPH  = 30.0
	LocationDetectTimeout    = 10 * time.Second
	DispatchRequestTimeout   = 15 * time.Second
	ConfirmationDelay        = 3 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInternalServer   = "internal server error"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrValidationFailed = "validation failed"
	ErrRequestNotFound  = "request not found"
	ErrProviderNotFound = "provider not found"
	ErrNoProvidersNear  = "no providers nearby"
)

// Cache Keys
const (
	CacheRequestPrefix   = "assist:request:"
	CacheProviderPrefix  = "assist:provider:"
	CacheProvidersByCats = "assist:providers:cats:"
)

// Event Types
const (
	EventRequestCreated    = "request_created"
	EventRequestDispatched = "request_dispatched"
	EventRequestAdvanced   = "request_advanced"
	EventRequestCancelled  = "request_cancelled"
)

// Geographic Constants
const (
	EarthRadiusMiles = 3959.0
	EarthRadiusKM    = 6371.0
)
