package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/rostersim"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

// Default configuration constants.
const (
	defaultRosters       = 4
	defaultPlayers       = 18
	defaultMatches       = 30
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultSettleTimeout = 30 * time.Second
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		rosters   = flag.Int("rosters", defaultRosters, "Number of rosters to simulate")
		players   = flag.Int("players", defaultPlayers, "Players per roster")
		matches   = flag.Int("matches", defaultMatches, "Matches per season")
		seed      = flag.Uint64("seed", 0, "Season seed, 0 picks a random one")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", defaultSettleTimeout, "How long to wait for events to be applied")
		output    = flag.String("output", "", "Write the generated events to this JSON file")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		rostersim.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &rostersim.Config{
		BaseURL:          *baseURL,
		Rosters:          *rosters,
		PlayersPerRoster: *players,
		Matches:          *matches,
		Seed:             *seed,
		Workers:          *workers,
		Timeout:          *timeout,
		SettleTimeout:    *settle,
		OutputFile:       *output,
		Verbose:          *verbose,
	}

	if err := rostersim.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
