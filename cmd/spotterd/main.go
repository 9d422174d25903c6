package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ascotlan/iss-spotter/internal/api"
	"github.com/ascotlan/iss-spotter/internal/cli"
	"github.com/ascotlan/iss-spotter/internal/config"
	"github.com/ascotlan/iss-spotter/internal/health"
	"github.com/ascotlan/iss-spotter/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.New(os.Stdout, "error", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	srv := api.NewServer(api.Config{
		Addr:       cfg.Server.Addr,
		TrustProxy: cfg.Server.TrustProxy,
		// IP lookup, geolocation, and prediction run one after another.
		LookupTimeout: 3 * cfg.HTTP.TimeoutDuration(),
	}, logger, cli.Build(cfg, logger), &health.Gate{})

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Error("server listen error", "addr", cfg.Server.Addr, "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		"addr", ln.Addr().String(),
		"backend", cfg.Predictor.Backend,
		"trust_proxy", cfg.Server.TrustProxy,
	)
	if err := srv.Run(ctx, ln); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
