package lookup

import (
	"context"
	"errors"

	"github.com/ascotlan/iss-spotter/internal/upstream"
)

const DefaultIPURL = "https://api.ipify.org?format=json"

type ipResponse struct {
	IP string `json:"ip"`
}

func (b *ipResponse) Validate() error {
	if b.IP == "" {
		return &upstream.MalformedResponseError{Service: ServiceIP, Err: errors.New(`missing "ip" field`)}
	}
	return nil
}

// IPResolver asks an IP-echo service for the caller's public address.
type IPResolver struct {
	client *upstream.Client
	url    string
}

// NewIPResolver creates an IPResolver. An empty url selects DefaultIPURL.
func NewIPResolver(client *upstream.Client, url string) *IPResolver {
	if url == "" {
		url = DefaultIPURL
	}
	return &IPResolver{client: client, url: url}
}

// Resolve returns the public IP address reported by the service.
func (r *IPResolver) Resolve(ctx context.Context) (string, error) {
	var body ipResponse
	if err := r.client.GetJSON(ctx, ServiceIP, r.url, &body); err != nil {
		return "", err
	}
	return body.IP, nil
}
