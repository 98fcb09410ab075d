// Package geo provides great-circle distance math for geofence checks.
package geo

import "math"

// earthRadiusMeters is the spherical-Earth radius used for all distances.
const earthRadiusMeters = 6371000

// DistanceMeters returns the haversine distance in meters between two
// coordinates. Inputs are not validated; callers must ensure coordinates are
// finite and within range, otherwise NaN propagates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dlat := radians(lat2 - lat1)
	dlng := radians(lng2 - lng1)

	a := math.Pow(math.Sin(dlat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dlng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
