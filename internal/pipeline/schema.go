package pipeline

import (
	"fmt"
	"slices"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

var (
	addressColumns    = []string{models.ColumnUniqueID, models.ColumnAddress}
	structuredColumns = []string{
		models.ColumnUniqueID,
		models.ColumnStreet,
		models.ColumnCity,
		models.ColumnState,
		models.ColumnCountry,
		models.ColumnPostalCode,
	}
)

// DetectLayout decides which layout the header satisfies. The address layout
// wins when both are present. Column names are matched exactly.
func DetectLayout(header []string) (models.Layout, error) {
	switch {
	case containsAll(header, addressColumns):
		return models.LayoutAddress, nil
	case containsAll(header, structuredColumns):
		return models.LayoutStructured, nil
	default:
		return models.LayoutUnknown, &SchemaError{Columns: slices.Clone(header)}
	}
}

// Records turns the table rows into typed records of the given layout.
func Records(table *Table, layout models.Layout) ([]models.UploadedRecord, error) {
	var columns []string
	switch layout {
	case models.LayoutAddress:
		columns = addressColumns
	case models.LayoutStructured:
		columns = structuredColumns
	default:
		return nil, fmt.Errorf("unsupported layout: %s", layout)
	}

	idx := make(map[string]int, len(columns))
	for _, col := range columns {
		i, ok := table.Index(col)
		if !ok {
			return nil, &SchemaError{Columns: slices.Clone(table.Header)}
		}
		idx[col] = i
	}

	records := make([]models.UploadedRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := models.UploadedRecord{
			UniqueID: row[idx[models.ColumnUniqueID]],
			Layout:   layout,
		}
		if layout == models.LayoutAddress {
			rec.Address = row[idx[models.ColumnAddress]]
		} else {
			rec.Street = row[idx[models.ColumnStreet]]
			rec.City = row[idx[models.ColumnCity]]
			rec.State = row[idx[models.ColumnState]]
			rec.Country = row[idx[models.ColumnCountry]]
			rec.PostalCode = row[idx[models.ColumnPostalCode]]
		}
		records = append(records, rec)
	}

	return records, nil
}

func containsAll(header, required []string) bool {
	for _, col := range required {
		if !slices.Contains(header, col) {
			return false
		}
	}

	return true
}
