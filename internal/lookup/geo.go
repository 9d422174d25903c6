package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/ascotlan/iss-spotter/internal/upstream"
)

const DefaultGeoURL = "http://ipwho.is/"

// geoResponse accepts latitude and longitude as JSON numbers or numeric
// strings and keeps their decimal text untouched.
type geoResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Latitude  json.Number `json:"latitude"`
	Longitude json.Number `json:"longitude"`
}

func (b *geoResponse) Validate() error {
	if !b.Success {
		return &upstream.UpstreamRejectedError{Service: ServiceGeo, Message: b.Message}
	}
	if b.Latitude == "" || b.Longitude == "" {
		return &upstream.MalformedResponseError{Service: ServiceGeo, Err: errors.New("missing latitude or longitude")}
	}
	return nil
}

// GeoResolver maps an IP address to coordinates.
type GeoResolver struct {
	client  *upstream.Client
	baseURL string
}

// NewGeoResolver creates a GeoResolver. The IP is appended to baseURL as the
// last path segment; an empty baseURL selects DefaultGeoURL.
func NewGeoResolver(client *upstream.Client, baseURL string) *GeoResolver {
	if baseURL == "" {
		baseURL = DefaultGeoURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &GeoResolver{client: client, baseURL: baseURL}
}

// Resolve looks up ip. The address is not validated here; the service
// decides whether it is acceptable.
func (r *GeoResolver) Resolve(ctx context.Context, ip string) (Coordinates, error) {
	var body geoResponse
	if err := r.client.GetJSON(ctx, ServiceGeo, r.baseURL+url.PathEscape(ip), &body); err != nil {
		return Coordinates{}, err
	}
	return Coordinates{
		Latitude:  body.Latitude.String(),
		Longitude: body.Longitude.String(),
	}, nil
}
