package rating

// RosterContext is the normalization context shared by every rating call in
// one roster refresh. It is a value; callers pass it explicitly.
type RosterContext struct {
	MaxMatches   int `json:"max_matches"`
	MaxRawPoints int `json:"max_raw_points"`
}

// Regime reports which constant set applies to this roster.
func (c RosterContext) Regime() Regime {
	if c.MaxMatches < shortTournamentMaxMatches {
		return RegimeShort
	}
	return RegimeLong
}

// IsShortTournament reports whether the short-tournament regime applies.
func (c RosterContext) IsShortTournament() bool {
	return c.Regime() == RegimeShort
}

// ComputeContext scans a roster and returns its maxima, each floored at 1.
// An empty roster yields {1, 1}.
func ComputeContext(roster []PlayerStats) RosterContext {
	ctx := RosterContext{MaxMatches: 1, MaxRawPoints: 1}
	for i := range roster {
		s := roster[i].Sanitize()
		if s.Matches > ctx.MaxMatches {
			ctx.MaxMatches = s.Matches
		}
		if p := s.Points(); p > ctx.MaxRawPoints {
			ctx.MaxRawPoints = p
		}
	}
	return ctx
}
