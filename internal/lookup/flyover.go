package lookup

import (
	"context"
	"errors"
	"net/url"

	"github.com/ascotlan/iss-spotter/internal/upstream"
)

const (
	DefaultFlyoverURL = "https://iss-flyover.herokuapp.com/json/"

	flyoverSuccess = "success"
)

type flyoverResponse struct {
	Message  string  `json:"message"`
	Response *[]Pass `json:"response"`
}

func (b *flyoverResponse) Validate() error {
	if b.Message != flyoverSuccess {
		return &upstream.UpstreamRejectedError{Service: ServiceFlyover, Message: "failed to fetch fly-over times"}
	}
	if b.Response == nil {
		return &upstream.MalformedResponseError{Service: ServiceFlyover, Err: errors.New(`missing "response" field`)}
	}
	return nil
}

// FlyoverPredictor asks the fly-over service for upcoming passes.
type FlyoverPredictor struct {
	client  *upstream.Client
	baseURL string
}

// NewFlyoverPredictor creates a FlyoverPredictor. An empty baseURL selects
// DefaultFlyoverURL.
func NewFlyoverPredictor(client *upstream.Client, baseURL string) *FlyoverPredictor {
	if baseURL == "" {
		baseURL = DefaultFlyoverURL
	}
	return &FlyoverPredictor{client: client, baseURL: baseURL}
}

// Predict returns the passes for coords in the order the service sent them.
// The service decides how many there are.
func (p *FlyoverPredictor) Predict(ctx context.Context, coords Coordinates) ([]Pass, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, &upstream.TransportError{Service: ServiceFlyover, URL: p.baseURL, Err: err}
	}
	q := u.Query()
	q.Set("lat", coords.Latitude)
	q.Set("lon", coords.Longitude)
	u.RawQuery = q.Encode()

	var body flyoverResponse
	if err := p.client.GetJSON(ctx, ServiceFlyover, u.String(), &body); err != nil {
		return nil, err
	}
	return *body.Response, nil
}
