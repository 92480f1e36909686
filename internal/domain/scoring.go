package domain

import "math"

const (
	// BasePoints is awarded for any correct answer.
	BasePoints = 1000
	// MaxSpeedBonus is the extra awarded for an instant correct answer,
	// shrinking linearly to zero as the timer runs out.
	MaxSpeedBonus = 500
)

// ScorePoints computes the points for a submission: base plus a speed bonus
// proportional to the remaining fraction of the time limit. Wrong answers
// score zero regardless of speed. Elapsed is clamped to [0, limit].
func ScorePoints(correct bool, elapsedSec float64, timeLimitSec int) int {
	if !correct {
		return 0
	}
	limit := float64(timeLimitSec)
	if limit <= 0 {
		limit = DefaultTimeLimitSec
	}
	remaining := limit - elapsedSec
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}
	return BasePoints + int(math.Floor(MaxSpeedBonus*remaining/limit))
}
