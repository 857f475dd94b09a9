package rostersim

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

// ErrVerification is returned when published standings break an invariant.
var ErrVerification = errors.New("verification failed")

type ratingsResponse struct {
	RosterID string  `json:"roster_id"`
	Entries  []Entry `json:"entries"`
}

type playerStats struct {
	Tally
	Role string `json:"role"`
}

type playerResponse struct {
	Entry
	Stats *playerStats `json:"stats"`
}

// rosterURL builds /rosters/{id}/... with escaped segments.
func rosterURL(base, rosterID string, rest ...string) string {
	u := base + "/rosters/" + url.PathEscape(rosterID)
	for _, r := range rest {
		u += "/" + url.PathEscape(r)
	}
	return u
}

// waitForSettle polls player tallies until every roster matches the season or
// the settle timeout passes.
func waitForSettle(ctx context.Context, cfg *Config, season *Season) error {
	log := logger.Get().Named("settle")
	client := newHTTPClient(cfg.Timeout)
	deadline := time.Now().Add(cfg.SettleTimeout)

	pending := make(map[string]bool, len(season.Tallies))
	for rosterID := range season.Tallies {
		pending[rosterID] = true
	}

	for {
		for rosterID := range pending {
			if rosterSettled(ctx, client, cfg.BaseURL, rosterID, season.Tallies[rosterID], season.Goalkeeper[rosterID]) {
				delete(pending, rosterID)
			}
		}
		if len(pending) == 0 {
			log.Info(ctx, "all rosters settled")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d rosters did not settle within %s", ErrVerification, len(pending), cfg.SettleTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settlePollInterval):
		}
	}
}

// rosterSettled reports whether the service's tallies match want and the
// goalkeeper carries its role.
func rosterSettled(ctx context.Context, client *HTTPClient, base, rosterID string, want map[string]Tally, keeper string) bool {
	for pid, tally := range want {
		var got playerResponse
		if err := client.getJSON(ctx, rosterURL(base, rosterID, "players", pid), &got); err != nil {
			return false
		}
		if got.Stats == nil || got.Stats.Tally != tally {
			return false
		}
		if pid == keeper && got.Stats.Role != "goalkeeper" {
			return false
		}
	}
	return true
}

// verifyStandings fetches each roster's standings and checks them.
func verifyStandings(ctx context.Context, cfg *Config, season *Season, stats *Stats) error {
	log := logger.Get().Named("verify")
	client := newHTTPClient(cfg.Timeout)

	rosterIDs := make([]string, 0, len(season.Tallies))
	for id := range season.Tallies {
		rosterIDs = append(rosterIDs, id)
	}
	sort.Strings(rosterIDs)

	for _, rosterID := range rosterIDs {
		want := season.Tallies[rosterID]
		var got ratingsResponse
		u := fmt.Sprintf("%s?limit=%d", rosterURL(cfg.BaseURL, rosterID, "ratings"), len(want))
		if err := client.getJSON(ctx, u, &got); err != nil {
			return fmt.Errorf("standings for %s: %w", rosterID, err)
		}
		if err := CheckStandings(got.Entries, len(want)); err != nil {
			return fmt.Errorf("roster %s: %w", rosterID, err)
		}
		stats.PlayersVerified += len(got.Entries)

		if cfg.Verbose && len(got.Entries) > 0 {
			top := got.Entries[0]
			log.Info(ctx, "roster leader",
				logger.String("roster", rosterID),
				logger.String("player", top.PlayerID),
				logger.Int("rating", top.Rating),
			)
		}
	}
	log.Info(ctx, "standings verified", logger.Int("rosters", len(rosterIDs)), logger.Int("players", stats.PlayersVerified))
	return nil
}

// CheckStandings verifies one roster's standings: the expected size, every
// rating in the band, non-increasing order, and dense ranks.
func CheckStandings(entries []Entry, wantPlayers int) error {
	if len(entries) != wantPlayers {
		return fmt.Errorf("%w: %d entries, want %d", ErrVerification, len(entries), wantPlayers)
	}
	for i, e := range entries {
		if e.Rating < MinRating || e.Rating > MaxRating {
			return fmt.Errorf("%w: %s rated %d outside [%d, %d]", ErrVerification, e.PlayerID, e.Rating, MinRating, MaxRating)
		}
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: leader has rank %d", ErrVerification, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Rating > prev.Rating:
			return fmt.Errorf("%w: %s (%d) ranked below %s (%d)", ErrVerification, e.PlayerID, e.Rating, prev.PlayerID, prev.Rating)
		case e.Rating == prev.Rating && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tied ratings with ranks %d and %d", ErrVerification, prev.Rank, e.Rank)
		case e.Rating < prev.Rating && e.Rank != prev.Rank+1:
			return fmt.Errorf("%w: rank %d follows rank %d", ErrVerification, e.Rank, prev.Rank)
		}
	}
	return nil
}
