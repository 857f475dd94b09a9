package rostersim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

// Per-match probabilities. Ability scales the scoring ones.
const (
	appearanceChance = 0.85
	goalChance       = 0.35
	assistChance     = 0.30
	keeperAssist     = 0.03
	yellowChance     = 0.08
	redChance        = 0.01
)

// Event kinds on the wire.
const (
	kindAppearance = "appearance"
	kindGoal       = "goal"
	kindAssist     = "assist"
	kindYellow     = "yellow_card"
	kindRed        = "red_card"
)

// GenerateSeason builds a season of events for cfg.Rosters rosters and the
// tallies they add up to. The same seed always yields the same tallies.
func GenerateSeason(ctx context.Context, cfg *Config) (*Season, error) {
	if cfg.Rosters < 1 || cfg.PlayersPerRoster < 1 || cfg.Matches < 1 {
		return nil, fmt.Errorf("rosters, players and matches must be positive")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	season := &Season{
		Tallies:    make(map[string]map[string]Tally, cfg.Rosters),
		Goalkeeper: make(map[string]string, cfg.Rosters),
	}
	kickoff := time.Now().UTC().Add(-time.Duration(cfg.Matches) * 7 * 24 * time.Hour)

	for r := 0; r < cfg.Rosters; r++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("season generation cancelled: %w", err)
		}
		rosterID := fmt.Sprintf("roster-%02d", r+1)
		players := make([]string, cfg.PlayersPerRoster)
		ability := make([]float64, cfg.PlayersPerRoster)
		for i := range players {
			players[i] = fmt.Sprintf("%s-p%02d", rosterID, i+1)
			ability[i] = 0.2 + rng.Float64()*1.3
		}
		season.Goalkeeper[rosterID] = players[0]
		tallies := make(map[string]Tally, len(players))

		for m := 0; m < cfg.Matches; m++ {
			ts := kickoff.Add(time.Duration(m) * 7 * 24 * time.Hour).Format(time.RFC3339)
			for i, pid := range players {
				keeper := i == 0
				if !keeper && rng.Float64() > appearanceChance {
					continue
				}
				t := tallies[pid]
				add := func(kind string) {
					ev := Event{EventID: uuid.NewString(), RosterID: rosterID, PlayerID: pid, Kind: kind, TS: ts}
					if keeper {
						ev.Role = "goalkeeper"
					}
					season.Events = append(season.Events, ev)
				}

				add(kindAppearance)
				t.Matches++
				if !keeper && rng.Float64() < goalChance*ability[i] {
					add(kindGoal)
					t.Goals++
				}
				assist := assistChance * ability[i]
				if keeper {
					assist = keeperAssist
				}
				if rng.Float64() < assist {
					add(kindAssist)
					t.Assists++
				}
				if rng.Float64() < yellowChance {
					add(kindYellow)
					t.YellowCards++
				}
				if rng.Float64() < redChance {
					add(kindRed)
					t.RedCards++
				}
				tallies[pid] = t
			}
		}
		season.Tallies[rosterID] = tallies
	}

	rng.Shuffle(len(season.Events), func(i, j int) {
		season.Events[i], season.Events[j] = season.Events[j], season.Events[i]
	})

	logger.Get().Info(ctx, "generated season",
		logger.Int("rosters", cfg.Rosters),
		logger.Int("events", len(season.Events)),
		logger.Any("seed", seed),
	)
	return season, nil
}
