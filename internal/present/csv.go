package present

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/UnknownOlympus/geoplot/internal/models"
	"github.com/jszwec/csvutil"
)

// DownloadFilename is the name offered for the annotated CSV.
const DownloadFilename = "geocoded_data.csv"

const dataURIPrefix = "data:text/csv;charset=utf-8,"

// coordinate prints the shortest decimal that parses back to the same float.
type coordinate float64

func (c coordinate) MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(c), 'f', -1, 64), nil
}

func (c *coordinate) UnmarshalText(text []byte) error {
	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", text, err)
	}
	*c = coordinate(f)

	return nil
}

type csvRow struct {
	UniqueID  string     `csv:"UniqueID"`
	Address   string     `csv:"Address"`
	Latitude  coordinate `csv:"Latitude"`
	Longitude coordinate `csv:"Longitude"`
}

// EncodeCSV writes the header UniqueID,Address,Latitude,Longitude followed by
// one row per record. Fields are quoted per RFC 4180 when needed.
func EncodeCSV(rs models.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)

	if err := enc.EncodeHeader(csvRow{}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range rs.Records {
		row := csvRow{
			UniqueID:  rec.UniqueID,
			Address:   rec.Address,
			Latitude:  coordinate(rec.Coordinates.Latitude),
			Longitude: coordinate(rec.Coordinates.Longitude),
		}
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row %s: %w", rec.UniqueID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeCSV parses the output of EncodeCSV back into a ResultSet.
func DecodeCSV(data []byte) (models.ResultSet, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(bytes.NewReader(data)))
	if err != nil {
		return models.ResultSet{}, fmt.Errorf("failed to read csv header: %w", err)
	}

	var rs models.ResultSet
	for {
		var row csvRow
		err = dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.ResultSet{}, fmt.Errorf("failed to decode csv row: %w", err)
		}
		rs.Records = append(rs.Records, models.GeocodedRecord{
			NormalizedRecord: models.NormalizedRecord{UniqueID: row.UniqueID, Address: row.Address},
			Coordinates: &models.Coordinates{
				Latitude:  float64(row.Latitude),
				Longitude: float64(row.Longitude),
			},
		})
	}

	return rs, nil
}

// DataURI embeds the CSV in a link target suitable for a download anchor.
func DataURI(csvData []byte) string {
	return dataURIPrefix + url.PathEscape(string(csvData))
}
