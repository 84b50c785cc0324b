// Package duplicates finds repeated code, repeated configuration idioms and
// packages declared by more than one manifest.
package duplicates

import (
	"context"
	"sort"
	"strings"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/source"
)

// Option is a functional option for configuring Detector.
type Option func(*Detector)

// WithMinBlockLines sets the window length for exact block detection.
func WithMinBlockLines(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.config.MinBlockLines = n
		}
	}
}

// WithSimilarityThreshold sets the Jaccard threshold for near duplicates.
func WithSimilarityThreshold(threshold float64) Option {
	return func(d *Detector) {
		if threshold > 0 && threshold <= 1 {
			d.config.SimilarityThreshold = threshold
		}
	}
}

// WithThresholds applies the thresholds section of the configuration.
func WithThresholds(t config.ThresholdConfig) Option {
	return func(d *Detector) {
		if t.MinBlockLines > 0 {
			d.config.MinBlockLines = t.MinBlockLines
		}
		if t.MaxFunctionLines > 0 {
			d.config.MaxFunctionLines = t.MaxFunctionLines
		}
		if t.MinSignatureTokens > 0 {
			d.config.MinSignatureTokens = t.MinSignatureTokens
		}
		if t.NearDuplicateSimilarity > 0 && t.NearDuplicateSimilarity <= 1 {
			d.config.SimilarityThreshold = t.NearDuplicateSimilarity
		}
	}
}

// WithConfig replaces the whole detector configuration.
func WithConfig(cfg Config) Option {
	return func(d *Detector) {
		d.config = cfg
	}
}

// Detector finds duplication across a set of files.
type Detector struct {
	config Config
}

// New creates a new duplication detector.
func New(opts ...Option) *Detector {
	d := &Detector{config: DefaultConfig()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the effective configuration.
func (d *Detector) Config() Config {
	return d.config
}

// Detect runs every duplication check over in. Only JavaScript-like files
// contribute code; manifests contribute dependency declarations.
func (d *Detector) Detect(ctx context.Context, in Input) (*Analysis, error) {
	analysis := &Analysis{}

	files := append([]File(nil), in.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	var blocks []CodeBlock
	fileLines := make(map[string][]string, len(files))
	occurrences := make(map[string][]PatternOccurrence)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !source.IsJSLike(f.Ext) {
			continue
		}
		lines := facts.SplitLines(f.Content)
		fileLines[f.RelPath] = lines

		runs, codeLines := codeRuns(lines, f.Ext)
		analysis.Summary.TotalCodeLines += codeLines
		blocks = append(blocks, windows(f.RelPath, runs, d.config.MinBlockLines)...)

		analysis.Functions = append(analysis.Functions, extractFunctions(f.RelPath, lines, d.config.MaxFunctionLines)...)
		tagLines(f.RelPath, lines, occurrences)
	}

	preview := func(file string, line int) string {
		lines := fileLines[file]
		if line < 1 || line > len(lines) {
			return ""
		}
		return strings.TrimSpace(lines[line-1])
	}
	analysis.ExactBlocks = mergeRegions(groupBlocks(blocks), d.config.MinBlockLines, preview)
	analysis.FunctionClusters = structuralGroups(analysis.Functions, d.config.MinSignatureTokens)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	analysis.NearDuplicates = d.nearDuplicates(analysis.Functions)
	analysis.ConfigPatterns = configPatterns(occurrences)
	analysis.Dependencies = dependencyDuplicates(in.Manifests)
	analysis.Hotspots = computeHotspots(analysis.ExactBlocks)

	d.summarize(analysis)
	return analysis, nil
}

// nearDuplicates compares functions with enough tokens. Pairs in the same
// file whose ranges overlap (nested functions) are never compared, and
// neither are pairs with identical signatures, which structural clustering
// already reports.
func (d *Detector) nearDuplicates(units []FunctionUnit) []NearGroup {
	var candidates []FunctionUnit
	var sigs []*MinHashSignature
	for _, u := range units {
		if len(u.tokens) < d.config.MinFunctionTokens {
			continue
		}
		candidates = append(candidates, u)
		sigs = append(sigs, computeMinHash(normalizeForSimilarity(u.tokens), d.config.ShingleSize, d.config.NumHashFunctions))
	}
	if len(candidates) < 2 {
		return nil
	}

	skip := func(a, b int) bool {
		ua, ub := candidates[a], candidates[b]
		if ua.File == ub.File {
			endA := ua.StartLine + ua.BodyLines - 1
			endB := ub.StartLine + ub.BodyLines - 1
			if ua.StartLine <= endB && ub.StartLine <= endA {
				return true
			}
		}
		return len(ua.Signature) >= d.config.MinSignatureTokens && ua.SignatureKey() == ub.SignatureKey()
	}
	return nearGroups(candidates, findSimilarPairs(sigs, d.config, skip))
}

// computeHotspots ranks files by the number of lines inside exact groups.
func computeHotspots(groups []ExactGroup) []Hotspot {
	byFile := make(map[string]*Hotspot)
	for _, g := range groups {
		seen := make(map[string]bool)
		for _, inst := range g.Instances {
			h := byFile[inst.File]
			if h == nil {
				h = &Hotspot{File: inst.File}
				byFile[inst.File] = h
			}
			h.DuplicateLines += inst.EndLine - inst.StartLine + 1
			if !seen[inst.File] {
				h.GroupCount++
				seen[inst.File] = true
			}
		}
	}

	hotspots := make([]Hotspot, 0, len(byFile))
	for _, h := range byFile {
		hotspots = append(hotspots, *h)
	}
	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].DuplicateLines != hotspots[j].DuplicateLines {
			return hotspots[i].DuplicateLines > hotspots[j].DuplicateLines
		}
		return hotspots[i].File < hotspots[j].File
	})
	if len(hotspots) > 10 {
		hotspots = hotspots[:10]
	}
	return hotspots
}

func (d *Detector) summarize(a *Analysis) {
	s := &a.Summary
	s.DuplicatedLines = coveredLines(a.ExactBlocks)
	if s.TotalCodeLines > 0 {
		s.DuplicationRatio = float64(s.DuplicatedLines) / float64(s.TotalCodeLines)
		if s.DuplicationRatio > 1.0 {
			s.DuplicationRatio = 1.0
		}
	}
	s.ExactGroups = len(a.ExactBlocks)
	s.FunctionClusters = len(a.FunctionClusters)
	s.NearDuplicateGroups = len(a.NearDuplicates)
	s.ConfigPatterns = len(a.ConfigPatterns)
	s.DuplicateDeps = len(a.Dependencies)
	for _, dep := range a.Dependencies {
		if dep.VersionConflict {
			s.VersionConflicts++
		}
	}
	s.Functions = len(a.Functions)
	if len(a.Functions) > 0 {
		total := 0
		for _, f := range a.Functions {
			total += f.Complexity
		}
		s.AverageComplexity = float64(total) / float64(len(a.Functions))
	}
	for _, g := range a.ExactBlocks {
		s.TotalEstimatedSaving += g.EstimatedSavings
	}
	for _, g := range a.FunctionClusters {
		s.TotalEstimatedSaving += g.EstimatedSavings
	}
}
