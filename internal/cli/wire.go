package cli

import (
	"log/slog"
	"time"

	"github.com/ascotlan/iss-spotter/internal/config"
	"github.com/ascotlan/iss-spotter/internal/lookup"
	"github.com/ascotlan/iss-spotter/internal/orbit"
	"github.com/ascotlan/iss-spotter/internal/passes"
	"github.com/ascotlan/iss-spotter/internal/tle"
	"github.com/ascotlan/iss-spotter/internal/upstream"
)

// Build assembles the lookup chain described by cfg. The server and both
// command-line tools share it.
func Build(cfg *config.Config, logger *slog.Logger) *passes.Orchestrator {
	client := upstream.NewClient(cfg.HTTP.TimeoutDuration(), logger)
	return passes.NewOrchestrator(
		lookup.NewIPResolver(client, cfg.Upstream.IPURL),
		lookup.NewGeoResolver(client, cfg.Upstream.GeoURL),
		newPredictor(cfg, client, logger),
		logger,
	)
}

func newPredictor(cfg *config.Config, client *upstream.Client, logger *slog.Logger) passes.Predictor {
	if cfg.Predictor.Backend == config.BackendTLE {
		return orbit.NewPredictor(
			tle.NewFetcher(client, cfg.Upstream.TLEURL, logger),
			orbit.Config{
				MaxPasses:    cfg.Predictor.MaxPasses,
				Horizon:      time.Duration(cfg.Predictor.HorizonHours * float64(time.Hour)),
				MinElevation: cfg.Predictor.MinElevation,
			},
			logger,
		)
	}
	return lookup.NewFlyoverPredictor(client, cfg.Upstream.FlyoverURL)
}
