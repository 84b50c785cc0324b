package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/panbanda/sift/internal/output"
	"github.com/urfave/cli/v2"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"dag"},
		Usage:     "Print the file import graph (Mermaid for text and markdown)",
		ArgsUsage: "[path | owner/repo[@ref] | git URL]",
		Flags: append(analysisFlags(),
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Include import rank and degree per file",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 10,
				Usage: "Files listed by rank with --metrics",
			},
		),
		Action: runGraphCmd,
	}
}

// graphView is the structured output of the graph command.
type graphView struct {
	Root              string              `json:"root" toon:"root"`
	Files             int                 `json:"files" toon:"files"`
	Imports           int                 `json:"imports" toon:"imports"`
	Edges             int                 `json:"edges" toon:"edges"`
	Components        int                 `json:"components" toon:"components"`
	Graph             map[string][]string `json:"graph" toon:"graph"`
	Cycles            [][]string          `json:"cycles" toon:"cycles"`
	StronglyConnected [][]string          `json:"stronglyConnected" toon:"stronglyConnected"`
	Ranks             []fileRank          `json:"ranks,omitempty" toon:"ranks,omitempty"`
}

type fileRank struct {
	File       string  `json:"file" toon:"file"`
	Rank       float64 `json:"rank" toon:"rank"`
	Imports    int     `json:"imports" toon:"imports"`
	ImportedBy int     `json:"importedBy" toon:"importedBy"`
}

func runGraphCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c, nil)
	if err != nil {
		return err
	}

	d := result.Dependencies
	view := graphView{
		Root:              result.Root,
		Files:             d.Files,
		Imports:           d.Imports,
		Edges:             d.Edges,
		Components:        d.Components,
		Graph:             d.Graph,
		Cycles:            d.Cycles,
		StronglyConnected: d.StronglyConnected,
	}
	if c.Bool("metrics") {
		for file, rel := range d.Relationships {
			view.Ranks = append(view.Ranks, fileRank{File: file, Rank: rel.Rank, Imports: len(rel.Imports), ImportedBy: len(rel.ImportedBy)})
		}
		sort.Slice(view.Ranks, func(i, j int) bool {
			if view.Ranks[i].Rank != view.Ranks[j].Rank {
				return view.Ranks[i].Rank > view.Ranks[j].Rank
			}
			return view.Ranks[i].File < view.Ranks[j].File
		})
		if top := c.Int("top"); top > 0 && len(view.Ranks) > top {
			view.Ranks = view.Ranks[:top]
		}
	}

	report := &output.Report{Title: "Import Graph: " + result.Root, Data: view}
	report.Sections = append(report.Sections,
		&output.Section{Title: "Diagram", Content: mermaid(view.Graph)},
		output.NewTable("Graph", []string{"Metric", "Value"}, [][]string{
			{"Files", fmt.Sprint(view.Files)},
			{"Import statements", fmt.Sprint(view.Imports)},
			{"Distinct edges", fmt.Sprint(view.Edges)},
			{"Connected components", fmt.Sprint(view.Components)},
			{"Cycles", fmt.Sprint(len(view.Cycles))},
			{"Strongly connected groups", fmt.Sprint(len(view.StronglyConnected))},
		}, nil, nil),
	)
	if t := cycleTable(view.Cycles); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if len(view.Ranks) > 0 {
		var rows [][]string
		for _, r := range view.Ranks {
			rows = append(rows, []string{r.File, fmt.Sprintf("%.4f", r.Rank), fmt.Sprint(r.Imports), fmt.Sprint(r.ImportedBy)})
		}
		report.Sections = append(report.Sections,
			output.NewTable("Top Files by Rank", []string{"File", "Rank", "Imports", "Imported by"}, rows, nil, view.Ranks))
	}

	_, formatter := formatterFor(c, cfg)
	return formatter.Output(report)
}

// mermaid renders the forward adjacency as a fenced Mermaid flowchart with
// nodes and edges in sorted order.
func mermaid(graph map[string][]string) string {
	files := make([]string, 0, len(graph))
	for f := range graph {
		files = append(files, f)
	}
	sort.Strings(files)

	var sb strings.Builder
	sb.WriteString("```mermaid\ngraph TD\n")
	for _, f := range files {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeID(f), f)
	}
	for _, f := range files {
		for _, to := range graph[f] {
			fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeID(f), sanitizeID(to))
		}
	}
	sb.WriteString("```")
	return sb.String()
}

// sanitizeID maps a path onto the characters Mermaid accepts in node IDs.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, id)
}
