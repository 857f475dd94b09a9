// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
)

// Kind is the type of a match stat event.
type Kind string

// Supported event kinds.
const (
	KindAppearance Kind = "appearance"
	KindGoal       Kind = "goal"
	KindAssist     Kind = "assist"
	KindYellowCard Kind = "yellow_card"
	KindRedCard    Kind = "red_card"
)

// ErrUnknownKind is returned by ParseKind for unsupported kinds.
var ErrUnknownKind = errors.New("unknown event kind")

// ParseKind validates and normalizes an event kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAppearance, KindGoal, KindAssist, KindYellowCard, KindRedCard:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// StatEvent is one match occurrence for a player in a roster.
type StatEvent struct {
	EventID  string      // unique id for idempotency
	RosterID string      // team or squad the player belongs to
	PlayerID string      // subject player
	Kind     Kind        // what happened
	Role     rating.Role // role reported with the event; goalkeeper is sticky
	TS       time.Time   // event timestamp
}

// Apply adds the event's effect to stats.
func (e StatEvent) Apply(stats *rating.PlayerStats) {
	if e.Role == rating.RoleGoalkeeper {
		stats.Role = rating.RoleGoalkeeper
	}
	switch e.Kind {
	case KindAppearance:
		stats.Matches++
	case KindGoal:
		stats.Goals++
	case KindAssist:
		stats.Assists++
	case KindYellowCard:
		stats.YellowCards++
	case KindRedCard:
		stats.RedCards++
	}
}

// PlayerTally is a full season line for one player, as delivered by bulk
// sources.
type PlayerTally struct {
	RosterID string             `json:"roster_id" yaml:"roster_id"`
	PlayerID string             `json:"player_id" yaml:"player_id"`
	Stats    rating.PlayerStats `json:"stats" yaml:",inline"`
}
