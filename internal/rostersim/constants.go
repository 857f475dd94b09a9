package rostersim

import "time"

// Rating band every published rating must fall in.
const (
	MinRating = 50
	MaxRating = 97
)

// Submission retry policy for backpressure responses.
const (
	maxSubmitAttempts = 8
	retryBaseDelay    = 10 * time.Millisecond
)

// Settle polling interval.
const settlePollInterval = 100 * time.Millisecond

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
