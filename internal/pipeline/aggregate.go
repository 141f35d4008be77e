package pipeline

import "github.com/UnknownOlympus/geoplot/internal/models"

// Aggregate keeps the resolved rows in input order. It fails with
// *EmptyResultError when nothing resolved.
func Aggregate(records []models.GeocodedRecord) (models.ResultSet, error) {
	resolved := make([]models.GeocodedRecord, 0, len(records))
	for _, rec := range records {
		if rec.Resolved() {
			resolved = append(resolved, rec)
		}
	}

	if len(resolved) == 0 {
		return models.ResultSet{}, &EmptyResultError{Rows: len(records)}
	}

	return models.ResultSet{Records: resolved}, nil
}
