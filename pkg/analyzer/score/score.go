// Package score turns analysis counts into health scores.
package score

// Inputs are the counts the scores are computed from.
type Inputs struct {
	JSLikeFiles           int
	UnusedFiles           int
	DuplicatedLines       int
	TotalCodeLines        int
	Cycles                int
	Orphans               int
	DuplicateDependencies int
	DuplicateConfigs      int
	FunctionComplexities  []int
}

// Thresholds defines minimum acceptable scores. Zero disables a check.
type Thresholds struct {
	CodeHealth      int `json:"codeHealth" toml:"code_health"`
	Maintainability int `json:"maintainability" toml:"maintainability"`
	Redundancy      int `json:"redundancy" toml:"redundancy"`
}

// ThresholdResult tracks pass/fail status for a threshold check.
type ThresholdResult struct {
	Min    int  `json:"min"`
	Passed bool `json:"passed"`
}

// Metrics are the scores reported for a run.
type Metrics struct {
	CodeHealth      float64                    `json:"codeHealth" toon:"codeHealth"`
	Maintainability float64                    `json:"maintainability" toon:"maintainability"`
	Redundancy      float64                    `json:"redundancy" toon:"redundancy"`
	Complexity      float64                    `json:"complexity" toon:"complexity"`
	ComplexityStats ComplexityStats            `json:"complexityStats" toon:"complexityStats"`
	Thresholds      map[string]ThresholdResult `json:"thresholds,omitempty" toon:"thresholds,omitempty"`
	Passed          bool                       `json:"passed" toon:"passed"`
}

// Compute calculates every score from in. Complexity is the average
// function complexity and is informational.
func Compute(in Inputs) Metrics {
	stats := ComputeComplexityStats(in.FunctionComplexities)
	return Metrics{
		CodeHealth:      CodeHealth(in.UnusedFiles, in.JSLikeFiles, in.DuplicatedLines, in.TotalCodeLines),
		Maintainability: Maintainability(in.Cycles, in.Orphans),
		Redundancy:      Redundancy(in.DuplicateDependencies, in.DuplicateConfigs),
		Complexity:      stats.Mean,
		ComplexityStats: stats,
		Passed:          true,
	}
}

// CheckThresholds evaluates all thresholds and sets Passed status.
func (m *Metrics) CheckThresholds(t Thresholds) {
	m.Thresholds = make(map[string]ThresholdResult)
	m.Passed = true

	check := func(name string, actual float64, min int) {
		passed := min == 0 || int(actual) >= clamp(min, 0, 100)
		m.Thresholds[name] = ThresholdResult{Min: min, Passed: passed}
		if !passed {
			m.Passed = false
		}
	}

	check("codeHealth", m.CodeHealth, t.CodeHealth)
	check("maintainability", m.Maintainability, t.Maintainability)
	check("redundancy", m.Redundancy, t.Redundancy)
}
