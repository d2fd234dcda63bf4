package utils

import (
	"math"
)

// CalculateDistance returns the great-circle distance between two points in
// statute miles. Inputs are degrees. Symmetric, zero for coincident points;
// out-of-range coordinates are the caller's concern and produce a
// mathematically defined but meaningless value.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return haversineDistance(lat1, lon1, lat2, lon2)
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

func CalculateDistanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	return CalculateDistance(lat1, lon1, lat2, lon2) * (EarthRadiusKM / EarthRadiusMiles)
}

func IsWithinRadius(centerLat, centerLon, pointLat, pointLon, radiusMiles float64) bool {
	return CalculateDistance(centerLat, centerLon, pointLat, pointLon) <= radiusMiles
}

// EstimateETAMinutes converts a straight-line distance into a static ETA.
// This is a coarse estimate, not live tracking.
func EstimateETAMinutes(distanceMiles, averageSpeedMPH float64) int {
	if averageSpeedMPH <= 0 {
		averageSpeedMPH = AverageProviderSpeedMPH
	}

	timeMinutes := distanceMiles / averageSpeedMPH * 60
	return int(math.Ceil(timeMinutes))
}
