// Package lookup holds the three single-call collaborators of a run: the
// public IP lookup, IP geolocation, and the fly-over prediction service.
package lookup

import "fmt"

// Service names used in errors, logs, and metric labels.
const (
	ServiceIP      = "ip-lookup"
	ServiceGeo     = "geolocation"
	ServiceFlyover = "flyover"
)

// Coordinates are the decimal latitude and longitude exactly as the
// geolocation service reported them.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%s,%s", c.Latitude, c.Longitude)
}

// Pass is one predicted ISS fly-over.
type Pass struct {
	RiseTime int64 `json:"risetime"` // Unix seconds
	Duration int64 `json:"duration"` // seconds
}
