package common

import "time"

// Scene is a remote SLC acquisition returned by a catalog search.
type Scene struct {
	SourceID        string            `json:"source_id"` // product identifier, no extension
	UUID            string            `json:"uuid"`      // catalog file id
	Date            time.Time         `json:"date"`
	Orbit           int               `json:"orbit"`
	RelativeOrbit   int               `json:"relative_orbit"`
	FlightDirection string            `json:"flight_direction"`
	DownloadURL     string            `json:"download_url"`
	SizeMB          float64           `json:"size_mb"`
	Tags            map[string]string `json:"tags,omitempty"`
}
