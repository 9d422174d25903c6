package tle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ascotlan/iss-spotter/internal/upstream"
)

const (
	// DefaultSourceURL serves the ISS (NORAD 25544) element set.
	DefaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php?CATNR=25544&FORMAT=tle"

	// Service names the TLE source in errors, logs, and metrics.
	Service = "tle"
)

// Fetcher retrieves and parses TLE data from a remote source.
type Fetcher struct {
	sourceURL string
	client    *upstream.Client
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher for the given source URL.
func NewFetcher(client *upstream.Client, sourceURL string, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Fetcher{
		sourceURL: sourceURL,
		client:    client,
		logger:    logger.With("component", "tle"),
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs one GET and returns every entry in the response. A body
// with no usable entry is a MalformedResponseError.
func (f *Fetcher) Fetch(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := f.client.GetText(ctx, Service, f.sourceURL, func(body []byte) error {
		var err error
		entries, err = Parse(bytes.NewReader(body), f.logger)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no TLE entries in response")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched TLE data", "count", len(entries), "source", f.sourceURL)
	return entries, nil
}

// FetchOne returns the entry for noradID.
func (f *Fetcher) FetchOne(ctx context.Context, noradID int) (Entry, error) {
	entries, err := f.Fetch(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.NORADID == noradID {
			return e, nil
		}
	}
	return Entry{}, &upstream.MalformedResponseError{Service: Service, Err: fmt.Errorf("NORAD %d not in response", noradID)}
}
