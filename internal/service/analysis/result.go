package analysis

import (
	"time"

	"github.com/panbanda/sift/pkg/analyzer/deadcode"
	"github.com/panbanda/sift/pkg/analyzer/duplicates"
	"github.com/panbanda/sift/pkg/analyzer/graph"
	"github.com/panbanda/sift/pkg/analyzer/links"
	"github.com/panbanda/sift/pkg/analyzer/redundancy"
	"github.com/panbanda/sift/pkg/analyzer/score"
	"github.com/panbanda/sift/pkg/source"
)

// Result is the complete, serializable outcome of one run.
type Result struct {
	RunID           string              `json:"runId" toon:"runId"`
	Root            string              `json:"root" toon:"root"`
	GeneratedAt     time.Time           `json:"generatedAt" toon:"generatedAt"`
	Summary         Summary             `json:"summary" toon:"summary"`
	Files           FilesSection        `json:"files" toon:"files"`
	Dependencies    DependenciesSection `json:"dependencies" toon:"dependencies"`
	Patterns        PatternsSection     `json:"patterns" toon:"patterns"`
	Redundancy      RedundancySection   `json:"redundancy" toon:"redundancy"`
	Links           LinksSection        `json:"links" toon:"links"`
	Recommendations Recommendations     `json:"recommendations" toon:"recommendations"`
	Metrics         score.Metrics       `json:"metrics" toon:"metrics"`
	Annotations     []Annotation        `json:"annotations" toon:"annotations"`
}

// Summary holds the headline counts.
type Summary struct {
	TotalFiles            int `json:"totalFiles" toon:"totalFiles"`
	JSLikeFiles           int `json:"jsLikeFiles" toon:"jsLikeFiles"`
	UnusedFiles           int `json:"unusedFiles" toon:"unusedFiles"`
	DuplicatePatterns     int `json:"duplicatePatterns" toon:"duplicatePatterns"`
	DuplicateDependencies int `json:"duplicateDependencies" toon:"duplicateDependencies"`
	Cycles                int `json:"cycles" toon:"cycles"`
	Orphans               int `json:"orphans" toon:"orphans"`
	EmptyFiles            int `json:"emptyFiles" toon:"emptyFiles"`
	EmptyDirectories      int `json:"emptyDirectories" toon:"emptyDirectories"`
	IdenticalFileGroups   int `json:"identicalFileGroups" toon:"identicalFileGroups"`
	BrokenLinks           int `json:"brokenLinks" toon:"brokenLinks"`
}

// FilesSection lists scanned files and the per-file findings.
type FilesSection struct {
	Records []source.FileRecord  `json:"records" toon:"records"`
	Empty   []string             `json:"empty" toon:"empty"`
	Orphans []string             `json:"orphans" toon:"orphans"`
	Unused  []deadcode.Candidate `json:"unused" toon:"unused"`
}

// DependenciesSection describes the import graph and manifest dependencies.
type DependenciesSection struct {
	Files             int                               `json:"files" toon:"files"`
	Imports           int                               `json:"imports" toon:"imports"`
	Edges             int                               `json:"edges" toon:"edges"`
	Components        int                               `json:"components" toon:"components"`
	Graph             map[string][]string               `json:"graph" toon:"graph"`
	Reverse           map[string][]string               `json:"reverse" toon:"reverse"`
	Relationships     map[string]graph.Relationship     `json:"relationships" toon:"relationships"`
	Unused            []deadcode.UnusedDependency       `json:"unused" toon:"unused"`
	Duplicates        []duplicates.DependencyDuplicate  `json:"duplicates" toon:"duplicates"`
	Cycles            [][]string                        `json:"cycles" toon:"cycles"`
	StronglyConnected [][]string                        `json:"stronglyConnected" toon:"stronglyConnected"`
	External          []graph.Edge                      `json:"external" toon:"external"`
	Issues            []graph.Issue                     `json:"issues" toon:"issues"`
	EntryPoints       map[string][]deadcode.EntrySource `json:"entryPoints" toon:"entryPoints"`
}

// PatternsSection holds the duplication findings.
type PatternsSection struct {
	ExactBlocks      []duplicates.ExactGroup      `json:"exactBlocks" toon:"exactBlocks"`
	FunctionClusters []duplicates.StructuralGroup `json:"functionClusters" toon:"functionClusters"`
	NearDuplicates   []duplicates.NearGroup       `json:"nearDuplicates" toon:"nearDuplicates"`
	Configurations   []duplicates.ConfigPattern   `json:"configurations" toon:"configurations"`
	Hotspots         []duplicates.Hotspot         `json:"hotspots,omitempty" toon:"hotspots,omitempty"`
	Summary          duplicates.Summary           `json:"summary" toon:"summary"`
}

// RedundancySection holds empty and byte-identical file findings.
type RedundancySection struct {
	EmptyFiles       []redundancy.EmptyFile      `json:"emptyFiles" toon:"emptyFiles"`
	EmptyDirectories []string                    `json:"emptyDirectories" toon:"emptyDirectories"`
	IdenticalFiles   []redundancy.IdenticalGroup `json:"identicalFiles" toon:"identicalFiles"`
	ReclaimableBytes int64                       `json:"reclaimableBytes" toon:"reclaimableBytes"`
}

// LinksSection holds broken markdown links.
type LinksSection struct {
	Broken []links.BrokenLink `json:"broken" toon:"broken"`
}

// buildResult assembles the result from a completed session.
func buildResult(sess *Session) *Result {
	g := sess.Graph
	dead := sess.DeadCode
	dup := sess.Duplicates
	red := sess.Redundancy

	r := &Result{
		RunID:       sess.RunID,
		Root:        sess.Root,
		GeneratedAt: sess.StartedAt,
		Files: FilesSection{
			Records: nonNil(sess.Records),
			Empty:   []string{},
			Orphans: nonNil(sess.Orphans),
			Unused:  nonNil(dead.Candidates),
		},
		Dependencies: DependenciesSection{
			Files:             len(g.Nodes()),
			Imports:           len(g.Edges()),
			Edges:             g.EdgeCount(),
			Components:        g.Components(),
			Graph:             g.ForwardMap(),
			Reverse:           g.ReverseMap(),
			Relationships:     g.Relationships(),
			Unused:            nonNil(sess.UnusedDeps),
			Duplicates:        nonNil(dup.Dependencies),
			Cycles:            nonNil(sess.Cycles),
			StronglyConnected: nonNil(g.StronglyConnected()),
			External:          nonNil(g.External()),
			Issues:            nonNil(g.Issues()),
			EntryPoints:       dead.EntryPoints,
		},
		Patterns: PatternsSection{
			ExactBlocks:      nonNil(dup.ExactBlocks),
			FunctionClusters: nonNil(dup.FunctionClusters),
			NearDuplicates:   nonNil(dup.NearDuplicates),
			Configurations:   nonNil(dup.ConfigPatterns),
			Hotspots:         dup.Hotspots,
			Summary:          dup.Summary,
		},
		Redundancy: RedundancySection{
			EmptyFiles:       nonNil(red.EmptyFiles),
			EmptyDirectories: nonNil(red.EmptyDirectories),
			IdenticalFiles:   nonNil(red.IdenticalFiles),
			ReclaimableBytes: red.ReclaimableBytes,
		},
		Links:       LinksSection{Broken: nonNil(sess.BrokenLinks)},
		Annotations: nonNil(sess.Annotations),
	}
	for _, ef := range red.EmptyFiles {
		r.Files.Empty = append(r.Files.Empty, ef.File)
	}

	r.Summary = Summary{
		TotalFiles:            len(sess.Records),
		JSLikeFiles:           sess.jsLikeFiles(),
		UnusedFiles:           len(dead.Candidates),
		DuplicatePatterns:     len(dup.ExactBlocks) + len(dup.FunctionClusters) + len(dup.NearDuplicates) + len(dup.ConfigPatterns),
		DuplicateDependencies: len(dup.Dependencies),
		Cycles:                len(sess.Cycles),
		Orphans:               len(sess.Orphans),
		EmptyFiles:            len(red.EmptyFiles),
		EmptyDirectories:      len(red.EmptyDirectories),
		IdenticalFileGroups:   len(red.IdenticalFiles),
		BrokenLinks:           len(sess.BrokenLinks),
	}

	complexities := make([]int, 0, len(dup.Functions))
	for _, fn := range dup.Functions {
		complexities = append(complexities, fn.Complexity)
	}
	r.Metrics = score.Compute(score.Inputs{
		JSLikeFiles:           r.Summary.JSLikeFiles,
		UnusedFiles:           r.Summary.UnusedFiles,
		DuplicatedLines:       dup.Summary.DuplicatedLines,
		TotalCodeLines:        dup.Summary.TotalCodeLines,
		Cycles:                r.Summary.Cycles,
		Orphans:               r.Summary.Orphans,
		DuplicateDependencies: r.Summary.DuplicateDependencies,
		DuplicateConfigs:      len(dup.ConfigPatterns),
		FunctionComplexities:  complexities,
	})

	r.Recommendations = recommend(sess)
	return r
}

// nonNil keeps empty sections as [] rather than null in JSON.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
