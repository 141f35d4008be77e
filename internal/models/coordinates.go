package models

import "math"

// Coordinates represents a geographical point defined by its latitude and longitude.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`  // Latitude of the geographical point.
	Longitude float64 `json:"longitude"` // Longitude of the geographical point.
}

// Valid reports whether the point is finite and within the WGS84 ranges.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}

	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
