package present

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

var (
	ErrIntermediateColumns = errors.New("unexpected intermediate columns")
	errRowWidth            = errors.New("row must have 4 values")
)

var intermediateColumns = []string{
	models.ColumnUniqueID,
	models.ColumnAddress,
	"Latitude",
	"Longitude",
}

// Intermediate is the serialized form of a ResultSet passed between the run and the map.
type Intermediate struct {
	Columns []string           `json:"columns"`
	Data    []intermediateRow  `json:"data"`
	Center  models.Coordinates `json:"center"`
	Zoom    int                `json:"zoom"`
}

type intermediateRow struct {
	UniqueID  string
	Address   string
	Latitude  float64
	Longitude float64
}

func (r intermediateRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.UniqueID, r.Address, r.Latitude, r.Longitude})
}

func (r *intermediateRow) UnmarshalJSON(data []byte) error {
	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if len(values) != len(intermediateColumns) {
		return errRowWidth
	}

	targets := []any{&r.UniqueID, &r.Address, &r.Latitude, &r.Longitude}
	for i, target := range targets {
		if err := json.Unmarshal(values[i], target); err != nil {
			return fmt.Errorf("column %s: %w", intermediateColumns[i], err)
		}
	}

	return nil
}

// EncodeResultSet serializes the set together with its map view.
func EncodeResultSet(rs models.ResultSet) ([]byte, error) {
	view := rs.View()
	out := Intermediate{
		Columns: intermediateColumns,
		Data:    make([]intermediateRow, 0, rs.Count()),
		Center:  view.Center,
		Zoom:    view.Zoom,
	}
	for _, rec := range rs.Records {
		out.Data = append(out.Data, intermediateRow{
			UniqueID:  rec.UniqueID,
			Address:   rec.Address,
			Latitude:  rec.Coordinates.Latitude,
			Longitude: rec.Coordinates.Longitude,
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result set: %w", err)
	}

	return data, nil
}

// DecodeResultSet is the inverse of EncodeResultSet.
func DecodeResultSet(data []byte) (models.ResultSet, error) {
	var in Intermediate
	if err := json.Unmarshal(data, &in); err != nil {
		return models.ResultSet{}, fmt.Errorf("failed to decode result set: %w", err)
	}
	if len(in.Columns) != len(intermediateColumns) {
		return models.ResultSet{}, fmt.Errorf("%w: %v", ErrIntermediateColumns, in.Columns)
	}
	for i, col := range in.Columns {
		if col != intermediateColumns[i] {
			return models.ResultSet{}, fmt.Errorf("%w: %v", ErrIntermediateColumns, in.Columns)
		}
	}

	rs := models.ResultSet{Records: make([]models.GeocodedRecord, 0, len(in.Data))}
	for _, row := range in.Data {
		rs.Records = append(rs.Records, models.GeocodedRecord{
			NormalizedRecord: models.NormalizedRecord{UniqueID: row.UniqueID, Address: row.Address},
			Coordinates:      &models.Coordinates{Latitude: row.Latitude, Longitude: row.Longitude},
		})
	}

	return rs, nil
}
