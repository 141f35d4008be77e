package pipeline

import (
	"strings"

	"github.com/UnknownOlympus/geoplot/internal/models"
)

const addressSeparator = ", "

// Normalize collapses every record to a single address string. Structured rows
// are joined as "Street, City, State, Country, PostalCode" with no part omitted.
func Normalize(records []models.UploadedRecord) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, len(records))
	for i, rec := range records {
		out[i] = models.NormalizedRecord{
			UniqueID: rec.UniqueID,
			Address:  normalizeAddress(rec),
		}
	}

	return out
}

func normalizeAddress(rec models.UploadedRecord) string {
	if rec.Layout == models.LayoutStructured {
		return strings.Join([]string{
			rec.Street,
			rec.City,
			rec.State,
			rec.Country,
			rec.PostalCode,
		}, addressSeparator)
	}

	return rec.Address
}
