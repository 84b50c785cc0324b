package score

import "math"

// =============================================================================
// HEALTH SCORES
// =============================================================================
//
// Each score is a linear penalty model starting at 100 and floored at 0.
// Higher is better. The weights are heuristics, not calibrated benchmarks;
// they rank trees against each other and track a tree over time.
// =============================================================================

// -----------------------------------------------------------------------------
// Code Health
// -----------------------------------------------------------------------------
//
// Penalizes unused files and duplicated code lines.
//
//	codeHealth = 100 - 30*unusedRatio - 40*duplicateBlockRatio
//
// unusedRatio is unused files over JavaScript-like files. The duplicate
// block ratio is duplicated block lines over total code lines, capped at 1.
// -----------------------------------------------------------------------------

// CodeHealth computes the code health score.
func CodeHealth(unused, jsLikeFiles, duplicatedLines, totalCodeLines int) float64 {
	return floor(100 - 30*ratio(unused, jsLikeFiles) - 40*ratio(duplicatedLines, totalCodeLines))
}

// -----------------------------------------------------------------------------
// Maintainability
// -----------------------------------------------------------------------------
//
// Penalizes structural problems in the import graph.
//
//	maintainability = 100 - 10*cycles - 5*orphans
// -----------------------------------------------------------------------------

// Maintainability computes the maintainability score.
func Maintainability(cycles, orphans int) float64 {
	return floor(100 - 10*float64(cycles) - 5*float64(orphans))
}

// -----------------------------------------------------------------------------
// Redundancy
// -----------------------------------------------------------------------------
//
// Penalizes repeated declarations across packages.
//
//	redundancy = 100 - 5*duplicateDependencies - 3*duplicateConfigPatterns
// -----------------------------------------------------------------------------

// Redundancy computes the redundancy score.
func Redundancy(duplicateDeps, duplicateConfigPatterns int) float64 {
	return floor(100 - 5*float64(duplicateDeps) - 3*float64(duplicateConfigPatterns))
}

// ratio returns part/whole capped at 1. An empty whole yields 0.
func ratio(part, whole int) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	r := float64(part) / float64(whole)
	if r > 1 {
		return 1
	}
	return r
}

func floor(score float64) float64 {
	if score < 0 {
		return 0
	}
	return round(score)
}

// round keeps two decimals.
func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
