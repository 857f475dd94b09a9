package rostersim

import "os"

// ShowHelp prints usage information for the roster simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(helpText)
}

const helpText = `Roster Simulator
================

Simulates a season of match events for several rosters, posts them to the
rating service and verifies the published standings.

Usage:
  go run ./cmd/roster-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -rosters int
        Number of rosters to simulate (default 4)
  -players int
        Players per roster, the first one is the goalkeeper (default 18)
  -matches int
        Matches per season (default 30)
  -seed uint
        Season seed, 0 picks a random one (default 0)
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        How long to wait for the service to apply all events (default 30s)
  -output string
        Write the generated events to this JSON file
  -log-format string
        Log format: text or json (default "text")
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # A short cup run, below the six-match threshold
  go run ./cmd/roster-sim -matches 5

  # A reproducible league season
  go run ./cmd/roster-sim -rosters 8 -matches 34 -seed 42
`
