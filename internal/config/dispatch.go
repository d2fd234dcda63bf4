package config

import (
	"time"
)

type DispatchConfig struct {
	SearchRadiusMiles     float64       `yaml:"search_radius_miles"`
	MaxRadiusMiles        float64       `yaml:"max_radius_miles"`
	WidenOnEmpty          bool          `yaml:"widen_on_empty"`
	AverageSpeedMPH       float64       `yaml:"average_speed_mph"`
	DefaultETAMinutes     int           `yaml:"default_eta_minutes"`
	LocationDetectTimeout time.Duration `yaml:"location_detect_timeout"`
	RequestTimeout        time.Duration `yaml:"request_timeout"`
	ConfirmationDelay     time.Duration `yaml:"confirmation_delay"`
}

func loadDispatchConfig() *DispatchConfig {
	return &DispatchConfig{
		SearchRadiusMiles:     getEnvAsFloat64("DISPATCH_SEARCH_RADIUS_MILES", 10.0),
		MaxRadiusMiles:        getEnvAsFloat64("DISPATCH_MAX_RADIUS_MILES", 25.0),
		WidenOnEmpty:          getEnvAsBool("DISPATCH_WIDEN_ON_EMPTY", true),
		AverageSpeedMPH:       getEnvAsFloat64("DISPATCH_AVERAGE_SPEED_MPH", 30.0),
		DefaultETAMinutes:     getEnvAsInt("DISPATCH_DEFAULT_ETA_MINUTES", 30),
		LocationDetectTimeout: getEnvAsDuration("DISPATCH_LOCATION_DETECT_TIMEOUT", 10*time.Second),
		RequestTimeout:        getEnvAsDuration("DISPATCH_REQUEST_TIMEOUT", 15*time.Second),
		ConfirmationDelay:     getEnvAsDuration("DISPATCH_CONFIRMATION_DELAY", 3*time.Second),
	}
}
