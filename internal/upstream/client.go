// Package upstream performs single-attempt GET calls against the external
// services and classifies every failure into one of four error kinds.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ascotlan/iss-spotter/internal/metrics"
)

const (
	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 1 << 20
	// maxErrorBodyBytes caps the raw body kept on a RemoteStatusError.
	maxErrorBodyBytes = 64 << 10
)

// Client wraps an *http.Client for the upstream services.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client with the given request timeout. A zero timeout
// leaves the transport default in place.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return NewClientWithHTTP(&http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a Client around an existing *http.Client.
func NewClientWithHTTP(hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: hc,
		logger:     logger.With("component", "upstream"),
	}
}

// Validator is implemented by response bodies that can carry a failure
// inside a 200 answer. GetJSON calls Validate after decoding, so the
// recorded outcome is the final one.
type Validator interface {
	Validate() error
}

// GetJSON performs one GET against url and decodes the 200 body into out.
// The whole body must be a single JSON value. If out implements Validator
// its error is returned as is.
func (c *Client) GetJSON(ctx context.Context, service, url string, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() { c.observe(service, url, status, start, err) }()

	var body []byte
	body, status, err = c.get(ctx, service, url, "application/json")
	if err != nil {
		return err
	}

	if decodeErr := json.Unmarshal(body, out); decodeErr != nil {
		return &MalformedResponseError{Service: service, Err: decodeErr}
	}
	if v, ok := out.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// GetText performs one GET against url and hands the raw 200 body to parse.
// A parse error is reported as a MalformedResponseError.
func (c *Client) GetText(ctx context.Context, service, url string, parse func(body []byte) error) (err error) {
	start := time.Now()
	status := 0
	defer func() { c.observe(service, url, status, start, err) }()

	var body []byte
	body, status, err = c.get(ctx, service, url, "text/plain")
	if err != nil {
		return err
	}

	if parseErr := parse(body); parseErr != nil {
		return &MalformedResponseError{Service: service, Err: parseErr}
	}
	return nil
}

func (c *Client) observe(service, url string, status int, start time.Time, err error) {
	duration := time.Since(start)
	outcome := Outcome(err)
	metrics.ObserveUpstream(service, outcome, duration)
	if outcome == "rejected" {
		metrics.IncUpstreamRejection(service)
	}
	c.logger.Debug("upstream call",
		"service", service,
		"url", url,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"outcome", outcome,
	)
}

func (c *Client) get(ctx context.Context, service, url, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &TransportError{Service: service, URL: url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &TransportError{Service: service, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, resp.StatusCode, &RemoteStatusError{Service: service, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, &TransportError{Service: service, URL: url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return nil, resp.StatusCode, &MalformedResponseError{Service: service, Err: fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)}
	}

	return body, resp.StatusCode, nil
}
