// Package present renders a ResultSet for the user: map markers, a GeoJSON layer,
// the annotated CSV download and a JSON intermediate of the table.
package present

import (
	"fmt"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Marker is one point on the map. Tooltip and popup both show the address.
type Marker struct {
	UniqueID string             `json:"unique_id"`
	Position models.Coordinates `json:"position"`
	Tooltip  string             `json:"tooltip"`
	Popup    string             `json:"popup"`
}

// Markers returns one marker per record, in order.
func Markers(rs models.ResultSet) []Marker {
	markers := make([]Marker, 0, rs.Count())
	for _, rec := range rs.Records {
		markers = append(markers, Marker{
			UniqueID: rec.UniqueID,
			Position: *rec.Coordinates,
			Tooltip:  rec.Address,
			Popup:    rec.Address,
		})
	}

	return markers
}

// FeatureCollection builds the marker layer as GeoJSON features in lon/lat order.
func FeatureCollection(rs models.ResultSet) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, rs.Count())}
	if rs.Count() == 0 {
		return fc
	}

	bounds := geom.NewBounds(geom.XY)
	for _, m := range Markers(rs) {
		point := geom.NewPointFlat(geom.XY, []float64{m.Position.Longitude, m.Position.Latitude})
		bounds.Extend(point)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       m.UniqueID,
			Geometry: point,
			Properties: map[string]any{
				"unique_id": m.UniqueID,
				"tooltip":   m.Tooltip,
				"popup":     m.Popup,
			},
		})
	}
	fc.BBox = bounds

	return fc
}

// GeoJSON encodes FeatureCollection(rs).
func GeoJSON(rs models.ResultSet) ([]byte, error) {
	data, err := FeatureCollection(rs).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}

	return data, nil
}
