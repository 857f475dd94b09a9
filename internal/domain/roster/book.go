// Package roster keeps the running season tallies of every player, grouped by
// roster.
package roster

import (
	"errors"
	"sort"
	"sync"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
)

var (
	// ErrMissingRoster is returned when an event or tally has no roster id.
	ErrMissingRoster = errors.New("roster id is required")
	// ErrMissingPlayer is returned when an event or tally has no player id.
	ErrMissingPlayer = errors.New("player id is required")
	// ErrUnknownRoster is returned when a roster has no tallies.
	ErrUnknownRoster = errors.New("unknown roster")
)

// Book is a concurrency-safe set of per-roster player tallies.
type Book struct {
	mu      sync.RWMutex
	rosters map[string]map[string]rating.PlayerStats
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{rosters: make(map[string]map[string]rating.PlayerStats)}
}

// Apply folds one stat event into its player's tally.
func (b *Book) Apply(ev model.StatEvent) error {
	if ev.RosterID == "" {
		return ErrMissingRoster
	}
	if ev.PlayerID == "" {
		return ErrMissingPlayer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	players, ok := b.rosters[ev.RosterID]
	if !ok {
		players = make(map[string]rating.PlayerStats)
		b.rosters[ev.RosterID] = players
	}
	stats := players[ev.PlayerID]
	ev.Apply(&stats)
	players[ev.PlayerID] = stats
	return nil
}

// Replace swaps the whole content of one roster. Tallies for other rosters
// are ignored.
func (b *Book) Replace(rosterID string, tallies []model.PlayerTally) error {
	if rosterID == "" {
		return ErrMissingRoster
	}
	players := make(map[string]rating.PlayerStats, len(tallies))
	for _, t := range tallies {
		if t.RosterID != rosterID {
			continue
		}
		if t.PlayerID == "" {
			return ErrMissingPlayer
		}
		players[t.PlayerID] = t.Stats.Sanitize()
	}

	b.mu.Lock()
	b.rosters[rosterID] = players
	b.mu.Unlock()
	return nil
}

// Players returns the tallies of one roster ordered by player id.
func (b *Book) Players(rosterID string) []model.PlayerTally {
	b.mu.RLock()
	defer b.mu.RUnlock()

	players := b.rosters[rosterID]
	out := make([]model.PlayerTally, 0, len(players))
	for id, stats := range players {
		out = append(out, model.PlayerTally{RosterID: rosterID, PlayerID: id, Stats: stats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// Stats returns one player's tally.
func (b *Book) Stats(rosterID, playerID string) (rating.PlayerStats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.rosters[rosterID][playerID]
	return s, ok
}

// Rosters returns the known roster ids in ascending order.
func (b *Book) Rosters() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.rosters))
	for id := range b.rosters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PlayerCount returns the number of players across all rosters.
func (b *Book) PlayerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, players := range b.rosters {
		n += len(players)
	}
	return n
}

// GroupByRoster splits tallies by roster id.
func GroupByRoster(tallies []model.PlayerTally) map[string][]model.PlayerTally {
	out := make(map[string][]model.PlayerTally)
	for _, t := range tallies {
		out[t.RosterID] = append(out[t.RosterID], t)
	}
	return out
}
