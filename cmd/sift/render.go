package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/internal/service/removal"
	"github.com/panbanda/sift/pkg/analyzer/deadcode"
	"github.com/panbanda/sift/pkg/analyzer/duplicates"
)

// maxRows caps each text table; the saved JSON report has everything.
const maxRows = 20

// buildReport lays a result out as tables for text and markdown output.
func buildReport(r *analysis.Result) *output.Report {
	report := &output.Report{
		Title: "Sift Analysis: " + r.Root,
		Data:  r,
	}

	report.Sections = append(report.Sections, summaryTable(r), metricsTable(r))
	if t := unusedTable(r.Files.Unused); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if t := duplicateTable(r.Patterns); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if t := dependencyTable(r.Dependencies); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if t := cycleTable(r.Dependencies.Cycles); t != nil {
		report.Sections = append(report.Sections, t)
	}
	if t := linkTable(r); t != nil {
		report.Sections = append(report.Sections, t)
	}
	report.Sections = append(report.Sections, recommendationTable(r))
	if n := len(r.Annotations); n > 0 {
		report.Sections = append(report.Sections, &output.Section{
			Title:   "Notes",
			Content: fmt.Sprintf("%d files or directories could not be fully processed; see annotations in the JSON report.", n),
		})
	}
	return report
}

func summaryTable(r *analysis.Result) *output.Table {
	s := r.Summary
	rows := [][]string{
		{"Files scanned", fmt.Sprint(s.TotalFiles)},
		{"JavaScript/TypeScript files", fmt.Sprint(s.JSLikeFiles)},
		{"Unused files", fmt.Sprint(s.UnusedFiles)},
		{"Orphans", fmt.Sprint(s.Orphans)},
		{"Empty files", fmt.Sprint(s.EmptyFiles)},
		{"Empty directories", fmt.Sprint(s.EmptyDirectories)},
		{"Identical file groups", fmt.Sprint(s.IdenticalFileGroups)},
		{"Duplicate patterns", fmt.Sprint(s.DuplicatePatterns)},
		{"Duplicate dependencies", fmt.Sprint(s.DuplicateDependencies)},
		{"Import cycles", fmt.Sprint(s.Cycles)},
		{"Broken links", fmt.Sprint(s.BrokenLinks)},
	}
	footer := []string{"Reclaimable", humanize.Bytes(uint64(r.Redundancy.ReclaimableBytes))}
	return output.NewTable("Summary", []string{"Metric", "Value"}, rows, footer, s)
}

func metricsTable(r *analysis.Result) *output.Table {
	m := r.Metrics
	row := func(name, key string, v float64) []string {
		status := ""
		if th, ok := m.Thresholds[key]; ok && th.Min > 0 {
			status = fmt.Sprintf("min %d", th.Min)
			if !th.Passed {
				status += " FAILED"
			}
		}
		return []string{name, output.ScoreColor(v, fmt.Sprintf("%.2f", v)), status}
	}
	rows := [][]string{
		row("Code health", "codeHealth", m.CodeHealth),
		row("Maintainability", "maintainability", m.Maintainability),
		row("Redundancy", "redundancy", m.Redundancy),
		{"Complexity (avg)", fmt.Sprintf("%.2f", m.Complexity), ""},
	}
	return output.NewTable("Scores", []string{"Score", "Value", "Threshold"}, rows, nil, m)
}

func unusedTable(candidates []deadcode.Candidate) *output.Table {
	if len(candidates) == 0 {
		return nil
	}
	var rows [][]string
	for i, c := range candidates {
		if i == maxRows {
			break
		}
		reasons := make([]string, len(c.Reasons))
		for j, reason := range c.Reasons {
			reasons[j] = string(reason)
		}
		rows = append(rows, []string{
			c.File,
			humanize.Bytes(uint64(c.Size)),
			strings.Join(reasons, ", "),
			string(c.Safety),
		})
	}
	return output.NewTable("Unused Files", []string{"File", "Size", "Reasons", "Safety"}, rows,
		moreFooter(len(candidates), 4), candidates)
}

func duplicateTable(p analysis.PatternsSection) *output.Table {
	if len(p.ExactBlocks) == 0 && len(p.FunctionClusters) == 0 && len(p.NearDuplicates) == 0 {
		return nil
	}
	var rows [][]string
	for _, g := range p.ExactBlocks {
		files := make([]string, 0, len(g.Instances))
		for _, inst := range g.Instances {
			files = append(files, fmt.Sprintf("%s:%d", inst.File, inst.StartLine))
		}
		rows = append(rows, []string{"exact block", fmt.Sprintf("%d lines", g.Lines), strings.Join(files, ", ")})
	}
	for _, g := range p.FunctionClusters {
		rows = append(rows, []string{"similar functions", g.SuggestedName, functionRefs(g.Functions)})
	}
	for _, g := range p.NearDuplicates {
		rows = append(rows, []string{"near duplicate", fmt.Sprintf("%.0f%%", g.Similarity*100), functionRefs(g.Functions)})
	}
	total := len(rows)
	if total > maxRows {
		rows = rows[:maxRows]
	}
	return output.NewTable("Duplicated Code", []string{"Kind", "Detail", "Locations"}, rows, moreFooter(total, 3), p)
}

func functionRefs(refs []duplicates.FunctionRef) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, fmt.Sprintf("%s:%s", ref.File, ref.Name))
	}
	return strings.Join(parts, ", ")
}

func dependencyTable(d analysis.DependenciesSection) *output.Table {
	if len(d.Duplicates) == 0 && len(d.Unused) == 0 {
		return nil
	}
	var rows [][]string
	for _, dup := range d.Duplicates {
		kind := "duplicate"
		if dup.VersionConflict {
			kind = "version conflict"
		}
		rows = append(rows, []string{dup.Name, kind, strings.Join(dup.Versions, ", "), strings.Join(dup.Manifests, ", ")})
	}
	for _, u := range d.Unused {
		rows = append(rows, []string{u.Name, "unused", u.Version, u.Manifest})
	}
	return output.NewTable("Dependencies", []string{"Package", "Finding", "Versions", "Manifests"}, rows, nil, d)
}

func cycleTable(cycles [][]string) *output.Table {
	if len(cycles) == 0 {
		return nil
	}
	var rows [][]string
	for _, cycle := range cycles {
		rows = append(rows, []string{strings.Join(cycle, " -> ") + " -> " + cycle[0]})
	}
	return output.NewTable("Import Cycles", []string{"Cycle"}, rows, nil, cycles)
}

func linkTable(r *analysis.Result) *output.Table {
	if len(r.Links.Broken) == 0 {
		return nil
	}
	var rows [][]string
	for _, l := range r.Links.Broken {
		rows = append(rows, []string{fmt.Sprintf("%s:%d", l.File, l.Line), l.Target, l.Reason})
	}
	return output.NewTable("Broken Links", []string{"Location", "Target", "Reason"}, rows, nil, r.Links.Broken)
}

func recommendationTable(r *analysis.Result) *output.Table {
	all := r.Recommendations.All()
	var rows [][]string
	for i, rec := range all {
		if i == maxRows {
			break
		}
		rows = append(rows, []string{
			output.ImpactColor(string(rec.Impact), string(rec.Impact)),
			rec.Type,
			rec.Action,
		})
	}
	return output.NewTable("Recommendations", []string{"Impact", "Type", "Action"}, rows,
		moreFooter(len(all), 3), r.Recommendations)
}

// moreFooter returns a footer noting hidden rows, or nil.
func moreFooter(total, cols int) []string {
	if total <= maxRows {
		return nil
	}
	footer := make([]string, cols)
	footer[0] = fmt.Sprintf("... and %d more", total-maxRows)
	return footer
}

// removalTable renders a removal report.
func removalTable(rep *removal.Report) *output.Table {
	var rows [][]string
	for _, f := range rep.Files {
		rows = append(rows, []string{f.Path, humanize.Bytes(uint64(f.Size)), string(f.Status)})
	}
	for _, d := range rep.Directories {
		rows = append(rows, []string{d.Path + "/", "", string(d.Status)})
	}
	for _, e := range rep.Errors {
		rows = append(rows, []string{e.Path, "", "error: " + e.Message})
	}

	verb := "Removed"
	if rep.Summary.DryRun {
		verb = "Would remove"
	}
	footer := []string{
		fmt.Sprintf("%s %d files, %d directories", verb, rep.Summary.FilesRemoved, rep.Summary.DirectoriesRemoved),
		humanize.Bytes(uint64(rep.Summary.TotalSizeBytes)),
		fmt.Sprintf("%d errors", rep.Summary.Errors),
	}
	return output.NewTable("Removal", []string{"Path", "Size", "Status"}, rows, footer, rep)
}
