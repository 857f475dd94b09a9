// Package rostersim simulates seasons of match stat events for several
// rosters, posts them to a running rating service, and verifies the
// standings it publishes.
package rostersim

import "time"

// Config holds configuration for a simulation run
type Config struct {
	BaseURL          string        // Base URL of the service
	Rosters          int           // Number of rosters to simulate
	PlayersPerRoster int           // Squad size; the first player is the goalkeeper
	Matches          int           // Matches per season
	Seed             uint64        // Seed for the season generator; 0 picks one
	Workers          int           // Number of concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	SettleTimeout    time.Duration // How long to wait for the service to apply everything
	OutputFile       string        // Optional output file for generated events
	Verbose          bool          // Enable verbose logging
}

// Event is the wire shape of POST /events
type Event struct {
	EventID  string `json:"event_id"`
	RosterID string `json:"roster_id"`
	PlayerID string `json:"player_id"`
	Kind     string `json:"kind"`
	Role     string `json:"role,omitempty"`
	TS       string `json:"ts"`
}

// Tally is the expected season line of one player
type Tally struct {
	Matches     int `json:"matches"`
	Goals       int `json:"goals"`
	Assists     int `json:"assists"`
	YellowCards int `json:"yellow_cards"`
	RedCards    int `json:"red_cards"`
}

// Season is a generated set of events and the tallies they add up to
type Season struct {
	Events     []Event
	Tallies    map[string]map[string]Tally // roster -> player -> tally
	Goalkeeper map[string]string           // roster -> goalkeeper id
}

// Entry mirrors one line of a roster's standings
type Entry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Rating   int    `json:"rating"`
}

// AckResponse represents the response from event submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics
type Stats struct {
	EventsGenerated  int
	EventsSubmitted  int
	EventsSuccessful int
	EventsDuplicate  int
	EventsFailed     int
	Retries          int
	PlayersVerified  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
