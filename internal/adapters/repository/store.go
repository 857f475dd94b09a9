// Package repository keeps the published rating standings of every roster.
package repository

import (
	"context"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
)

// Entry is one player's line in a roster's standings.
type Entry struct {
	Rank      int
	PlayerID  string
	Rating    int
	Breakdown rating.Breakdown
}

// Store provides read/write access to per-roster standings.
type Store interface {
	// ReplaceRoster publishes a freshly computed set of ratings for a roster.
	// Ranks are assigned by the store; any Rank on the input is ignored.
	// An empty slice removes the roster.
	ReplaceRoster(ctx context.Context, rosterID string, entries []Entry) error

	// Rank returns one player's entry. Returns ErrNotFound if the roster or
	// the player is unknown.
	Rank(ctx context.Context, rosterID, playerID string) (Entry, error)

	// TopN returns the first n entries ordered by rating desc, player id asc.
	TopN(ctx context.Context, rosterID string, n int) ([]Entry, error)

	// Count returns the number of rated players across all rosters.
	Count(ctx context.Context) int

	// Rosters returns the ids of rosters with published standings.
	Rosters(ctx context.Context) []string
}
