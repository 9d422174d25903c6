// Package passes chains the IP lookup, geolocation, and pass prediction
// into one run for the caller's current location.
package passes

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/metrics"
)

// failurePrefix is prepended to the error of whichever step fails.
const failurePrefix = "next pass lookup failed"

// IPResolver returns the caller's public IP address.
type IPResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// CoordsResolver maps an IP address to coordinates.
type CoordsResolver interface {
	Resolve(ctx context.Context, ip string) (lookup.Coordinates, error)
}

// Predictor returns upcoming passes over the given coordinates.
type Predictor interface {
	Predict(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error)
}

// IPResolverFunc adapts a function to IPResolver.
type IPResolverFunc func(ctx context.Context) (string, error)

func (f IPResolverFunc) Resolve(ctx context.Context) (string, error) { return f(ctx) }

// CoordsResolverFunc adapts a function to CoordsResolver.
type CoordsResolverFunc func(ctx context.Context, ip string) (lookup.Coordinates, error)

func (f CoordsResolverFunc) Resolve(ctx context.Context, ip string) (lookup.Coordinates, error) {
	return f(ctx, ip)
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error)

func (f PredictorFunc) Predict(ctx context.Context, coords lookup.Coordinates) ([]lookup.Pass, error) {
	return f(ctx, coords)
}

// State is a step of a run.
type State string

const (
	StateStart      State = "start"
	StateHaveIP     State = "have_ip"
	StateHaveCoords State = "have_coords"
	StateHavePasses State = "have_passes"
	StateFailed     State = "failed"
)

// Orchestrator runs the three lookups in order and stops at the first
// failure. It holds no per-run state, so one Orchestrator may serve any
// number of concurrent runs.
type Orchestrator struct {
	ip        IPResolver
	coords    CoordsResolver
	predictor Predictor
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(ip IPResolver, coords CoordsResolver, predictor Predictor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Orchestrator{
		ip:        ip,
		coords:    coords,
		predictor: predictor,
		logger:    logger.With("component", "passes"),
	}
}

// NextPasses resolves the caller's IP, geolocates it, and returns the
// predicted passes for that location unchanged.
func (o *Orchestrator) NextPasses(ctx context.Context) ([]lookup.Pass, error) {
	r := o.newRun()

	ip, err := o.ip.Resolve(ctx)
	if err != nil {
		return nil, r.fail("ip", err)
	}
	r.advance(StateHaveIP, "ip", ip)

	return o.fromIP(ctx, r, ip)
}

// NextPassesFor starts a run from an already known IP address.
func (o *Orchestrator) NextPassesFor(ctx context.Context, ip string) ([]lookup.Pass, error) {
	r := o.newRun()
	r.advance(StateHaveIP, "ip", ip)

	return o.fromIP(ctx, r, ip)
}

func (o *Orchestrator) fromIP(ctx context.Context, r *run, ip string) ([]lookup.Pass, error) {
	coords, err := o.coords.Resolve(ctx, ip)
	if err != nil {
		return nil, r.fail("geolocation", err)
	}
	r.advance(StateHaveCoords, "latitude", coords.Latitude, "longitude", coords.Longitude)

	list, err := o.predictor.Predict(ctx, coords)
	if err != nil {
		return nil, r.fail("prediction", err)
	}
	r.advance(StateHavePasses, "count", len(list))
	metrics.IncRun("success")

	return list, nil
}

func (o *Orchestrator) newRun() *run {
	r := &run{logger: o.logger.With("run_id", uuid.NewString())}
	r.logger.Debug("run state", "state", StateStart)
	return r
}

// run carries the logger of a single orchestration run.
type run struct {
	logger *slog.Logger
}

func (r *run) advance(to State, attrs ...any) {
	r.logger.Debug("run state", append([]any{"state", to}, attrs...)...)
}

// fail moves the run into StateFailed and prefixes err.
func (r *run) fail(step string, err error) error {
	metrics.IncRun(step)
	r.logger.Debug("run state", "state", StateFailed, "step", step, "error", err)
	return errors.Wrap(err, failurePrefix)
}
