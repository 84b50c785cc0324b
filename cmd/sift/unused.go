package main

import (
	"fmt"

	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/pkg/analyzer/deadcode"
	"github.com/urfave/cli/v2"
)

func unusedCmd() *cli.Command {
	return &cli.Command{
		Name:      "unused",
		Aliases:   []string{"u"},
		Usage:     "List files no entry point reaches and unused dependencies",
		ArgsUsage: "[path | owner/repo[@ref] | git URL]",
		Flags: append(analysisFlags(),
			&cli.BoolFlag{
				Name:  "safe-only",
				Usage: "Only list files that are safe to remove",
			},
		),
		Action: runUnusedCmd,
	}
}

// unusedView is the structured output of the unused command.
type unusedView struct {
	Root         string                      `json:"root" toon:"root"`
	Files        []deadcode.Candidate        `json:"files" toon:"files"`
	Dependencies []deadcode.UnusedDependency `json:"dependencies" toon:"dependencies"`
	Orphans      []string                    `json:"orphans" toon:"orphans"`
	EntryPoints  int                         `json:"entryPoints" toon:"entryPoints"`
	Safe         int                         `json:"safe" toon:"safe"`
	Review       int                         `json:"reviewRequired" toon:"reviewRequired"`
}

func runUnusedCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c, nil)
	if err != nil {
		return err
	}

	view := unusedView{
		Root:         result.Root,
		Files:        []deadcode.Candidate{},
		Dependencies: result.Dependencies.Unused,
		Orphans:      result.Files.Orphans,
		EntryPoints:  len(result.Dependencies.EntryPoints),
	}
	for _, cand := range result.Files.Unused {
		if cand.IsSafe() {
			view.Safe++
		} else {
			view.Review++
			if c.Bool("safe-only") {
				continue
			}
		}
		view.Files = append(view.Files, cand)
	}

	report := &output.Report{Title: "Unused Files: " + result.Root, Data: view}
	report.Sections = append(report.Sections, output.NewTable("Summary", []string{"Metric", "Value"}, [][]string{
		{"Entry points", fmt.Sprint(view.EntryPoints)},
		{"Unused files", fmt.Sprint(view.Safe + view.Review)},
		{"Safe to remove", fmt.Sprint(view.Safe)},
		{"Review required", fmt.Sprint(view.Review)},
		{"Unused dependencies", fmt.Sprint(len(view.Dependencies))},
	}, nil, nil))
	if t := unusedTable(view.Files); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if len(view.Dependencies) > 0 {
		var rows [][]string
		for _, u := range view.Dependencies {
			rows = append(rows, []string{u.Name, u.Version, u.Manifest})
		}
		report.Sections = append(report.Sections,
			output.NewTable("Unused Dependencies", []string{"Package", "Version", "Manifest"}, rows, nil, view.Dependencies))
	}

	_, formatter := formatterFor(c, cfg)
	return formatter.Output(report)
}
