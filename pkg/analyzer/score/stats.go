package score

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ComplexityStats summarizes per-function complexity.
type ComplexityStats struct {
	Functions int     `json:"functions" toon:"functions"`
	Mean      float64 `json:"mean" toon:"mean"`
	StdDev    float64 `json:"stdDev" toon:"stdDev"`
	P90       float64 `json:"p90" toon:"p90"`
	Max       float64 `json:"max" toon:"max"`
}

// ComputeComplexityStats calculates distribution statistics.
// Returns zero values when there are no functions.
func ComputeComplexityStats(values []int) ComplexityStats {
	n := len(values)
	if n == 0 {
		return ComplexityStats{}
	}

	xs := make([]float64, n)
	for i, v := range values {
		xs[i] = float64(v)
	}
	sort.Float64s(xs)

	mean, std := stat.MeanStdDev(xs, nil)
	if n < 2 {
		std = 0
	}
	return ComplexityStats{
		Functions: n,
		Mean:      round(mean),
		StdDev:    round(std),
		P90:       stat.Quantile(0.9, stat.Empirical, xs, nil),
		Max:       xs[n-1],
	}
}
