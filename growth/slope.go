package growth

import "math"

// SlopeWeights builds the 256-entry slope lookup used by Urbanize. A pixel
// of slope s passes the slope test when a uniform draw exceeds weights[s].
// Slopes at or above critical always fail; below it the weight follows
// 1 - ((critical-s)/critical)^(resistance/50).
func SlopeWeights(resistance, critical float64) [256]float64 {
	var w [256]float64
	exp := resistance / (MaxSlopeResistance / 2)
	for i := range w {
		s := float64(i)
		if s < critical {
			w[i] = 1 - math.Pow((critical-s)/critical, exp)
		} else {
			w[i] = 1
		}
	}
	return w
}
