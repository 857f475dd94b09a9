package rostersim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

const directoryPermission = 0o750

// Run executes a full simulation: generate a season, post it, wait for the
// service to apply it and verify the standings.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting roster simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rosters", cfg.Rosters),
		logger.Int("players", cfg.PlayersPerRoster),
		logger.Int("matches", cfg.Matches),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	if err := checkServiceHealth(ctx, cfg); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	season, err := GenerateSeason(ctx, cfg)
	if err != nil {
		return fmt.Errorf("season generation failed: %w", err)
	}
	stats.EventsGenerated = len(season.Events)

	if cfg.OutputFile != "" {
		if err := saveEventsToFile(ctx, cfg.OutputFile, season.Events); err != nil {
			logger.Get().Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	if err := submitEvents(ctx, cfg, season.Events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}
	if stats.EventsFailed > 0 {
		return fmt.Errorf("%w: %d events were not accepted", ErrVerification, stats.EventsFailed)
	}

	if err := waitForSettle(ctx, cfg, season); err != nil {
		return fmt.Errorf("waiting for events failed: %w", err)
	}

	if err := verifyStandings(ctx, cfg, season, stats); err != nil {
		return fmt.Errorf("standings verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, cfg *Config) error {
	client := newHTTPClient(cfg.Timeout)
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// saveEventsToFile writes the generated events as a JSON array.
func saveEventsToFile(ctx context.Context, filename string, events []Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	logger.Get().Info(ctx, "events saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("retries", stats.Retries),
		logger.Int("playersVerified", stats.PlayersVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
