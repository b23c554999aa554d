package generatesanctionletter

import "math"

// MonthlyEMI uses the reducing-balance formula. A zero rate spreads the
// principal evenly.
func MonthlyEMI(amount int64, tenureMonths int, annualRatePct float64) float64 {
	if tenureMonths <= 0 {
		return 0
	}
	p := float64(amount)
	n := float64(tenureMonths)
	r := annualRatePct / 12 / 100
	if r == 0 {
		return p / n
	}
	f := math.Pow(1+r, n)
	return p * r * f / (f - 1)
}
