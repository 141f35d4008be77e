package models

// GeocodeRequest is one "Run Geocoder" action over an uploaded file.
// Credential is handed to the provider unchanged and is never stored or logged.
type GeocodeRequest struct {
	Filename   string
	Raw        []byte
	Encoding   string
	Credential string
	OnProgress func(done, total int)
}
