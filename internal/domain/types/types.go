// Package types contains common types used across the application
package types

import "github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"

// Entry represents one player's line in a roster's standings
type Entry struct {
	Rank      int              `json:"rank"`
	PlayerID  string           `json:"player_id"`
	Rating    int              `json:"rating"`
	Breakdown rating.Breakdown `json:"breakdown"`
}

// RosterContext is a roster's normalization context together with the regime
// it selects
type RosterContext struct {
	RosterID string               `json:"roster_id"`
	Context  rating.RosterContext `json:"context"`
	Regime   rating.Regime        `json:"regime"`
	Players  int                  `json:"players"`
}

// SyncReport summarizes one bulk source sync
type SyncReport struct {
	Source     string `json:"source"`
	Rosters    int    `json:"rosters"`
	Players    int    `json:"players"`
	DurationMs int64  `json:"duration_ms"`
}
