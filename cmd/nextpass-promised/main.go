// Command nextpass-promised prints the upcoming ISS passes over the
// caller's location, awaiting the lookup chain as a single future.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ascotlan/iss-spotter/internal/cli"
	"github.com/ascotlan/iss-spotter/internal/config"
	"github.com/ascotlan/iss-spotter/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "It didn't work: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Await(ctx, cli.Build(cfg, logger), os.Stdout, time.Local)
	stop()
	os.Exit(code)
}
