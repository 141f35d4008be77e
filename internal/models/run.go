package models

import "time"

// Run is one completed geocoding pass over an upload, cached so that the count
// display, the map and the download all read the same result.
type Run struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Layout    Layout    `json:"layout"`
	Results   ResultSet `json:"results"`
	CreatedAt time.Time `json:"created_at"`
}
