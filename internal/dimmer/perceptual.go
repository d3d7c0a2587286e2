package dimmer

import (
	"math"

	"lightctl/internal/mathx"
)

// perceptualBase sets the curvature of the intensity mapping.
const perceptualBase = 49.899

// Correct maps a human brightness percent onto a logarithmic output percent:
//
//	out = 10^(p/49.899) - 1
//
// Equal steps in p then look like equal steps in brightness. Correct(0) is 0,
// Correct(100) is exactly 100 and the result never leaves [0,100].
// The input must already be validated.
func Correct(percent float64) float64 {
	if percent >= 100 {
		return 100
	}
	out := math.Pow(10, percent/perceptualBase) - 1
	return mathx.Clamp(out, 0, 100)
}

func validPercent(p float64) bool {
	return !math.IsNaN(p) && mathx.Between(p, 0, 100)
}
