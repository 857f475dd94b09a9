package rating

// Point weights used to build raw points from goals and assists.
const (
	goalWeight             = 4
	assistWeightOutfield   = 3
	assistWeightGoalkeeper = 4
)

// Rating band.
const (
	BaseRating = 50
	MinRating  = BaseRating
	MaxRating  = 97
)

// shortTournamentMaxMatches is the exclusive upper bound on a roster's max
// matches played for the short-tournament regime.
const shortTournamentMaxMatches = 6

// Discipline weights per card.
const (
	yellowCardPenalty = 0.3
	redCardPenalty    = 2.0
)

// Term caps and exponents shared by both regimes.
const (
	xpPool             = 20.0
	confidenceExponent = 1.2
)

// Role distinguishes goalkeepers from outfield players.
type Role int

const (
	RoleOutfield Role = iota
	RoleGoalkeeper
)

// String returns the wire name of the role.
func (r Role) String() string {
	if r == RoleGoalkeeper {
		return "goalkeeper"
	}
	return "outfield"
}

// ParseRole maps a wire name to a Role. Anything other than "goalkeeper"
// (or "gk") is an outfield player.
func ParseRole(s string) Role {
	switch s {
	case "goalkeeper", "gk", "GK":
		return RoleGoalkeeper
	default:
		return RoleOutfield
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// assistWeight returns the raw-points weight of one assist for the role.
func (r Role) assistWeight() int {
	if r == RoleGoalkeeper {
		return assistWeightGoalkeeper
	}
	return assistWeightOutfield
}

// Regime selects the constant set used by the engine.
type Regime int

const (
	RegimeLong Regime = iota
	RegimeShort
)

// String returns the wire name of the regime.
func (r Regime) String() string {
	if r == RegimeShort {
		return "short"
	}
	return "long"
}

// MarshalText implements encoding.TextMarshaler.
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Params holds the formula constants of one regime.
//
// XPThreshold and ConfidenceRef of zero mean "use the roster's max matches".
type Params struct {
	SkillPool   float64
	SoftCap     float64
	Compression float64
	HardCap     float64
	FormCap     float64

	XPThreshold   int
	ConfidenceRef int

	FormFactorOutfield   float64
	FormFactorGoalkeeper float64

	// SqrtStrength applies a square root to relative strength before scaling.
	SqrtStrength bool
}

// shortParams applies when the busiest roster member has played fewer than six matches.
var shortParams = Params{
	SkillPool:            30,
	SoftCap:              85,
	Compression:          0.4,
	HardCap:              97,
	FormCap:              20,
	XPThreshold:          0,
	ConfidenceRef:        0,
	FormFactorOutfield:   3.5,
	FormFactorGoalkeeper: 7.0,
	SqrtStrength:         true,
}

// longParams applies to full seasons.
var longParams = Params{
	SkillPool:            55,
	SoftCap:              85,
	Compression:          0.2,
	HardCap:              96,
	FormCap:              10,
	XPThreshold:          15,
	ConfidenceRef:        8,
	FormFactorOutfield:   2.0,
	FormFactorGoalkeeper: 4.0,
	SqrtStrength:         false,
}

// ParamsFor returns the constant set of a regime.
func ParamsFor(r Regime) Params {
	if r == RegimeShort {
		return shortParams
	}
	return longParams
}

// formFactor returns the points-per-match multiplier for role.
func (p Params) formFactor(role Role) float64 {
	if role == RoleGoalkeeper {
		return p.FormFactorGoalkeeper
	}
	return p.FormFactorOutfield
}

// xpThreshold resolves the matches needed for full participation credit.
func (p Params) xpThreshold(maxMatches int) int {
	if p.XPThreshold > 0 {
		return p.XPThreshold
	}
	return maxMatches
}

// confidenceRef resolves the matches needed for full form confidence.
func (p Params) confidenceRef(maxMatches int) int {
	if p.ConfidenceRef > 0 {
		return p.ConfidenceRef
	}
	return maxMatches
}
