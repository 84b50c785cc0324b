package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/pkg/analyzer/duplicates"
	"github.com/panbanda/sift/pkg/analyzer/redundancy"
	"github.com/panbanda/sift/pkg/config"
	"github.com/urfave/cli/v2"
)

func duplicatesCmd() *cli.Command {
	return &cli.Command{
		Name:      "duplicates",
		Aliases:   []string{"dup"},
		Usage:     "Report duplicated code, configuration, dependencies and identical files",
		ArgsUsage: "[path | owner/repo[@ref] | git URL]",
		Flags: append(analysisFlags(),
			&cli.IntFlag{
				Name:  "min-lines",
				Usage: "Minimum lines for an exact duplicate block (overrides thresholds.min_block_lines)",
			},
			&cli.Float64Flag{
				Name:  "similarity",
				Usage: "Minimum similarity for near duplicates, 0-1 (overrides thresholds.near_duplicate_similarity)",
			},
		),
		Action: runDuplicatesCmd,
	}
}

// duplicatesView is the structured output of the duplicates command.
type duplicatesView struct {
	Root             string                           `json:"root" toon:"root"`
	Patterns         analysis.PatternsSection         `json:"patterns" toon:"patterns"`
	Dependencies     []duplicates.DependencyDuplicate `json:"dependencies" toon:"dependencies"`
	IdenticalFiles   []redundancy.IdenticalGroup      `json:"identicalFiles" toon:"identicalFiles"`
	ReclaimableBytes int64                            `json:"reclaimableBytes" toon:"reclaimableBytes"`
}

func runDuplicatesCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c, func(cfg *config.Config) {
		if c.IsSet("min-lines") {
			cfg.Thresholds.MinBlockLines = c.Int("min-lines")
		}
		if c.IsSet("similarity") {
			cfg.Thresholds.NearDuplicateSimilarity = c.Float64("similarity")
		}
	})
	if err != nil {
		return err
	}

	view := duplicatesView{
		Root:             result.Root,
		Patterns:         result.Patterns,
		Dependencies:     result.Dependencies.Duplicates,
		IdenticalFiles:   result.Redundancy.IdenticalFiles,
		ReclaimableBytes: result.Redundancy.ReclaimableBytes,
	}

	s := result.Patterns.Summary
	report := &output.Report{Title: "Duplication: " + result.Root, Data: view}
	report.Sections = append(report.Sections, output.NewTable("Summary", []string{"Metric", "Value"}, [][]string{
		{"Code lines", fmt.Sprint(s.TotalCodeLines)},
		{"Duplicated lines", fmt.Sprint(s.DuplicatedLines)},
		{"Duplication ratio", fmt.Sprintf("%.1f%%", s.DuplicationRatio*100)},
		{"Identical file groups", fmt.Sprint(len(view.IdenticalFiles))},
		{"Duplicate dependencies", fmt.Sprint(len(view.Dependencies))},
	}, []string{"Reclaimable", humanize.Bytes(uint64(view.ReclaimableBytes))}, nil))
	if t := duplicateTable(view.Patterns); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if len(view.Patterns.Configurations) > 0 {
		var rows [][]string
		for _, p := range view.Patterns.Configurations {
			rows = append(rows, []string{p.Tag, fmt.Sprint(len(p.Occurrences)), strings.Join(p.Files, ", ")})
		}
		report.Sections = append(report.Sections,
			output.NewTable("Repeated Configuration", []string{"Pattern", "Occurrences", "Files"}, rows, nil, view.Patterns.Configurations))
	}
	if len(view.IdenticalFiles) > 0 {
		var rows [][]string
		for _, g := range view.IdenticalFiles {
			rows = append(rows, []string{strings.Join(g.Files, ", "), humanize.Bytes(uint64(g.Size))})
		}
		report.Sections = append(report.Sections,
			output.NewTable("Identical Files", []string{"Files", "Size"}, rows, nil, view.IdenticalFiles))
	}
	if t := dependencyTable(analysis.DependenciesSection{Duplicates: view.Dependencies}); t != nil {
		report.Sections = append(report.Sections, t)
	}

	_, formatter := formatterFor(c, cfg)
	return formatter.Output(report)
}
