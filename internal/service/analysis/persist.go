package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/panbanda/sift/pkg/analyzer/score"
)

// topRecommendations is how many recommendations the summary document keeps.
const topRecommendations = 10

// PriorityCounts counts recommendations per impact bucket.
type PriorityCounts struct {
	High   int `json:"high" toon:"high"`
	Medium int `json:"medium" toon:"medium"`
	Low    int `json:"low" toon:"low"`
}

// SummaryDocument is the condensed form of a Result.
type SummaryDocument struct {
	RunID              string           `json:"runId" toon:"runId"`
	Root               string           `json:"root" toon:"root"`
	GeneratedAt        time.Time        `json:"generatedAt" toon:"generatedAt"`
	Summary            Summary          `json:"summary" toon:"summary"`
	Metrics            score.Metrics    `json:"metrics" toon:"metrics"`
	Priority           PriorityCounts   `json:"priority" toon:"priority"`
	TopRecommendations []Recommendation `json:"topRecommendations" toon:"topRecommendations"`
	Reclaimable        string           `json:"reclaimable" toon:"reclaimable"`
	Annotations        int              `json:"annotations" toon:"annotations"`
}

// Condense builds the summary document for r.
func Condense(r *Result) *SummaryDocument {
	all := r.Recommendations.All()
	if len(all) > topRecommendations {
		all = all[:topRecommendations]
	}
	return &SummaryDocument{
		RunID:       r.RunID,
		Root:        r.Root,
		GeneratedAt: r.GeneratedAt,
		Summary:     r.Summary,
		Metrics:     r.Metrics,
		Priority: PriorityCounts{
			High:   len(r.Recommendations.Priority.High),
			Medium: len(r.Recommendations.Priority.Medium),
			Low:    len(r.Recommendations.Priority.Low),
		},
		TopRecommendations: all,
		Reclaimable:        humanize.Bytes(uint64(r.Redundancy.ReclaimableBytes + candidateBytes(r))),
		Annotations:        len(r.Annotations),
	}
}

// candidateBytes sums the size of every unused file candidate.
func candidateBytes(r *Result) int64 {
	var total int64
	for _, c := range r.Files.Unused {
		total += c.Size
	}
	return total
}

// Save writes the full result and its condensed summary as indented JSON.
// An empty summaryPath skips the summary.
func Save(r *Result, fullPath, summaryPath string) error {
	if err := writeJSON(fullPath, r); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if summaryPath == "" {
		return nil
	}
	if err := writeJSON(summaryPath, Condense(r)); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Load reads a result previously written by Save.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
