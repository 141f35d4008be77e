package models

// Layout identifies which of the two accepted column schemas an upload uses.
type Layout int

const (
	// LayoutUnknown is the zero value and never describes a validated dataset.
	LayoutUnknown Layout = iota
	// LayoutAddress is layout A: UniqueID plus a single free-text Address column.
	LayoutAddress
	// LayoutStructured is layout B: UniqueID plus Street, City, State, Country and PostalCode.
	LayoutStructured
)

// Column names of the accepted layouts.
const (
	ColumnUniqueID   = "UniqueID"
	ColumnAddress    = "Address"
	ColumnStreet     = "Street"
	ColumnCity       = "City"
	ColumnState      = "State"
	ColumnCountry    = "Country"
	ColumnPostalCode = "PostalCode"
)

// String returns a short name for the layout.
func (l Layout) String() string {
	switch l {
	case LayoutAddress:
		return "address"
	case LayoutStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// ParseLayout is the inverse of Layout.String.
func ParseLayout(s string) Layout {
	switch s {
	case "address":
		return LayoutAddress
	case "structured":
		return LayoutStructured
	default:
		return LayoutUnknown
	}
}

// UploadedRecord is one input row. Only the fields of its Layout carry data.
type UploadedRecord struct {
	UniqueID string
	Layout   Layout

	// Layout A.
	Address string

	// Layout B.
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// NormalizedRecord is an input row collapsed to a single address string.
type NormalizedRecord struct {
	UniqueID string `json:"unique_id"`
	Address  string `json:"address"`
}

// GeocodedRecord is a normalized row with the outcome of the geocoding call.
// A nil Coordinates marks the row as unresolved.
type GeocodedRecord struct {
	NormalizedRecord

	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Resolved reports whether the row carries a usable coordinate.
func (r GeocodedRecord) Resolved() bool {
	return r.Coordinates != nil && r.Coordinates.Valid()
}
