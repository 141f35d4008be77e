package models

// Map defaults used when there is nothing to center on.
const (
	DefaultZoom = 1
	ResultZoom  = 10
)

// ResultSet is the ordered collection of resolved rows driving every output.
// Every record in a ResultSet is resolved; the order is the input row order.
type ResultSet struct {
	Records []GeocodedRecord `json:"records"`
}

// MapView is the initial center and zoom of the rendered map.
type MapView struct {
	Center Coordinates `json:"center"`
	Zoom   int         `json:"zoom"`
}

// Count returns the number of resolved rows.
func (rs ResultSet) Count() int {
	return len(rs.Records)
}

// Center returns the mean latitude and mean longitude of the set.
// The zero point is returned for an empty set.
func (rs ResultSet) Center() Coordinates {
	if len(rs.Records) == 0 {
		return Coordinates{}
	}

	var lat, lon float64
	for _, rec := range rs.Records {
		lat += rec.Coordinates.Latitude
		lon += rec.Coordinates.Longitude
	}
	n := float64(len(rs.Records))

	return Coordinates{Latitude: lat / n, Longitude: lon / n}
}

// View computes the map center and zoom. The zoom is a fixed constant and does
// not depend on the spatial extent of the points.
func (rs ResultSet) View() MapView {
	if len(rs.Records) == 0 {
		return MapView{Center: Coordinates{}, Zoom: DefaultZoom}
	}

	return MapView{Center: rs.Center(), Zoom: ResultZoom}
}
