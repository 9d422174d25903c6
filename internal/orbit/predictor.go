// Package orbit predicts ISS passes locally from its element set, as an
// alternative to the remote fly-over service.
package orbit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/tle"
	"github.com/ascotlan/iss-spotter/internal/upstream"
)

// ISSNoradID is the catalog number of the International Space Station.
const ISSNoradID = 25544

const (
	coarseStep = 30 * time.Second
	fineStep   = time.Second
	minPassDur = 10 * time.Second
)

// Config bounds a local prediction.
type Config struct {
	MaxPasses    int
	Horizon      time.Duration
	MinElevation float64 // degrees
}

// TLESource returns the element set of one satellite.
type TLESource interface {
	FetchOne(ctx context.Context, noradID int) (tle.Entry, error)
}

// Predictor computes ISS passes with SGP4 from a freshly fetched TLE.
type Predictor struct {
	source TLESource
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// NewPredictor creates a Predictor.
func NewPredictor(source TLESource, cfg Config, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Predictor{
		source: source,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With("component", "orbit"),
	}
}

// Predict returns up to MaxPasses passes starting within Horizon of now, in
// chronological order. A pass already under way at the start is reported
// from the start; one still under way at the horizon ends there.
func (p *Predictor) Predict(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error) {
	lat, err := strconv.ParseFloat(coords.Latitude, 64)
	if err != nil {
		return nil, &upstream.MalformedResponseError{Service: lookup.ServiceGeo, Err: fmt.Errorf("latitude %q: %w", coords.Latitude, err)}
	}
	lon, err := strconv.ParseFloat(coords.Longitude, 64)
	if err != nil {
		return nil, &upstream.MalformedResponseError{Service: lookup.ServiceGeo, Err: fmt.Errorf("longitude %q: %w", coords.Longitude, err)}
	}

	entry, err := p.source.FetchOne(ctx, ISSNoradID)
	if err != nil {
		return nil, err
	}

	prop, err := NewPropagator(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		return nil, &upstream.MalformedResponseError{Service: tle.Service, Err: err}
	}

	start := p.now().UTC().Truncate(time.Second)
	list, err := p.scan(ctx, prop, NewObserver(lat, lon, 0), start, start.Add(p.cfg.Horizon))
	if err != nil {
		return nil, err
	}

	p.logger.Debug("predicted passes",
		"count", len(list),
		"tle_epoch", entry.Epoch.Format(time.RFC3339),
		"horizon_hours", p.cfg.Horizon.Hours(),
	)
	return list, nil
}

// scan steps through [start, end] coarsely and refines each horizon
// crossing to the second.
func (p *Predictor) scan(ctx context.Context, prop *Propagator, obs Observer, start, end time.Time) ([]lookup.Pass, error) {
	var (
		list      []lookup.Pass
		rise      time.Time
		prevT     = start
		prevAbove = p.visible(prop, obs, start)
	)
	if prevAbove {
		rise = start
	}

	for t := start.Add(coarseStep); !t.After(end) && len(list) < p.cfg.MaxPasses; t = t.Add(coarseStep) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pass prediction interrupted: %w", err)
		}

		above := p.visible(prop, obs, t)
		switch {
		case above && !prevAbove:
			rise = p.crossing(prop, obs, prevT, t, true)
		case !above && prevAbove:
			list = appendPass(list, rise, p.crossing(prop, obs, prevT, t, false))
		}
		prevT, prevAbove = t, above
	}

	if prevAbove && len(list) < p.cfg.MaxPasses {
		list = appendPass(list, rise, prevT)
	}
	return list, nil
}

// crossing returns the first second in (lo, hi] at which visibility equals
// want. hi itself is known to satisfy it.
func (p *Predictor) crossing(prop *Propagator, obs Observer, lo, hi time.Time, want bool) time.Time {
	for t := lo.Add(fineStep); t.Before(hi); t = t.Add(fineStep) {
		if p.visible(prop, obs, t) == want {
			return t
		}
	}
	return hi
}

func (p *Predictor) visible(prop *Propagator, obs Observer, t time.Time) bool {
	pos, err := prop.PositionECEF(t)
	if err != nil {
		return false
	}
	return obs.Elevation(pos) >= p.cfg.MinElevation
}

func appendPass(list []lookup.Pass, rise, set time.Time) []lookup.Pass {
	if set.Sub(rise) < minPassDur {
		return list
	}
	return append(list, lookup.Pass{
		RiseTime: rise.Unix(),
		Duration: int64(set.Sub(rise) / time.Second),
	})
}
