// Package rating converts a player's season statistics into a bounded rating
// normalized against the player's own roster.
//
// The package is pure: ComputeContext aggregates roster maxima once per
// refresh and ComputeRating maps one player plus that context to a Result.
// Both are safe for concurrent use.
package rating

import "math"

// pointsCeiling bounds raw points so that extreme tallies cannot overflow.
const pointsCeiling = math.MaxInt / 2

// PlayerStats holds one player's season tallies.
//
// Counts are expected to be non-negative; use Sanitize on untrusted input.
// RawPoints is optional: nil means "compute from goals and assists", while a
// supplied value (including zero) is used as is.
type PlayerStats struct {
	Matches     int  `json:"matches" yaml:"matches"`
	Goals       int  `json:"goals" yaml:"goals"`
	Assists     int  `json:"assists" yaml:"assists"`
	YellowCards int  `json:"yellow_cards" yaml:"yellow_cards"`
	RedCards    int  `json:"red_cards" yaml:"red_cards"`
	Role        Role `json:"role" yaml:"role"`
	RawPoints   *int `json:"raw_points,omitempty" yaml:"raw_points,omitempty"`
}

// Sanitize returns a copy with negative counts clamped to zero.
func (s PlayerStats) Sanitize() PlayerStats {
	s.Matches = max(0, s.Matches)
	s.Goals = max(0, s.Goals)
	s.Assists = max(0, s.Assists)
	s.YellowCards = max(0, s.YellowCards)
	s.RedCards = max(0, s.RedCards)
	if s.RawPoints != nil && *s.RawPoints < 0 {
		zero := 0
		s.RawPoints = &zero
	}
	return s
}

// Points returns the player's raw points, honoring a precomputed value.
func (s PlayerStats) Points() int {
	if s.RawPoints != nil {
		return min(max(0, *s.RawPoints), pointsCeiling)
	}
	return RawPoints(s.Goals, s.Assists, s.Role)
}

// RawPoints weights goals and assists into the base performance signal.
// Assists weigh more for goalkeepers.
func RawPoints(goals, assists int, role Role) int {
	limit := pointsCeiling / (2 * goalWeight)
	g := min(max(0, goals), limit)
	a := min(max(0, assists), limit)
	return g*goalWeight + a*role.assistWeight()
}

// Breakdown explains which terms produced a rating.
type Breakdown struct {
	Base        float64 `json:"base"`
	Performance float64 `json:"performance"`
	Experience  float64 `json:"experience"`
	Discipline  float64 `json:"discipline"`
}

// Result is a computed rating. Value is always in [MinRating, MaxRating].
type Result struct {
	Value     int       `json:"value"`
	Breakdown Breakdown `json:"breakdown"`
}

// Terms are the unrounded intermediate values of one rating computation.
type Terms struct {
	Regime     Regime
	RawPoints  int
	XP         float64
	Skill      float64
	Form       float64
	Discipline float64
	// RawTotal is the sum before compression and clamping.
	RawTotal float64
	// Total is the compressed, clamped value before rounding.
	Total float64
}

// ComputeTerms evaluates every term of the rating formula.
func ComputeTerms(stats PlayerStats, ctx RosterContext) Terms {
	s := stats.Sanitize()
	regime := ctx.Regime()
	p := ParamsFor(regime)
	maxMatches := max(1, ctx.MaxMatches)

	raw := s.Points()
	matches := float64(s.Matches)

	participation := math.Min(1, matches/float64(max(1, p.xpThreshold(maxMatches))))
	xp := participation * xpPool

	discipline := float64(s.YellowCards)*yellowCardPenalty + float64(s.RedCards)*redCardPenalty

	strength := 0.0
	if ctx.MaxRawPoints > 0 {
		strength = float64(raw) / float64(max(1, ctx.MaxRawPoints))
	}
	if p.SqrtStrength {
		strength = math.Sqrt(strength)
	}
	skill := strength * p.SkillPool

	perMatch := 0.0
	if s.Matches > 0 {
		perMatch = float64(raw) / matches
	}
	confidence := math.Min(1, math.Pow(matches/float64(max(1, p.confidenceRef(maxMatches))), confidenceExponent))
	form := math.Min(p.FormCap, perMatch*p.formFactor(s.Role)*confidence)

	rawTotal := BaseRating + xp + skill + form - discipline
	total := compress(rawTotal, p)

	return Terms{
		Regime:     regime,
		RawPoints:  raw,
		XP:         xp,
		Skill:      skill,
		Form:       form,
		Discipline: discipline,
		RawTotal:   rawTotal,
		Total:      total,
	}
}

// compress squeezes the excess above the soft cap, then clamps into
// [MinRating, HardCap].
func compress(total float64, p Params) float64 {
	if total > p.SoftCap {
		total = p.SoftCap + (total-p.SoftCap)*p.Compression
	}
	total = math.Min(total, p.HardCap)
	return math.Max(total, MinRating)
}

// ComputeRating maps one player's stats and the roster context to a Result.
func ComputeRating(stats PlayerStats, ctx RosterContext) Result {
	t := ComputeTerms(stats, ctx)
	return Result{
		Value: int(math.Round(t.Total)),
		Breakdown: Breakdown{
			Base:        BaseRating,
			Performance: round1(t.Skill + t.Form),
			Experience:  round1(t.XP),
			Discipline:  t.Discipline,
		},
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
