package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/panbanda/sift/pkg/analyzer/deadcode"
)

// Impact ranks how much a recommendation improves the tree.
type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Recommendation types.
const (
	TypeRemoveFile             = "remove-file"
	TypeRemoveEmptyFile        = "remove-empty-file"
	TypeRemoveEmptyDirectory   = "remove-empty-directory"
	TypeConsolidateIdentical   = "consolidate-identical-files"
	TypeConsolidateBlock       = "consolidate-block"
	TypeConsolidateSimilar     = "consolidate-similar-functions"
	TypeExtractUtility         = "extract-utility"
	TypeHoistDependency        = "hoist-dependency"
	TypeAlignDependencyVersion = "align-dependency-version"
	TypeRemoveDependency       = "remove-dependency"
	TypeUnifyConfiguration     = "unify-configuration"
	TypeBreakCycle             = "break-cycle"
	TypeFixLink                = "fix-link"
)

// Recommendation is one suggested change.
type Recommendation struct {
	Type    string   `json:"type" toon:"type"`
	Targets []string `json:"targets" toon:"targets"`
	Impact  Impact   `json:"impact" toon:"impact"`
	Action  string   `json:"action" toon:"action"`
	Safety  string   `json:"safety,omitempty" toon:"safety,omitempty"`
}

// Priority buckets every recommendation by impact.
type Priority struct {
	High   []Recommendation `json:"high" toon:"high"`
	Medium []Recommendation `json:"medium" toon:"medium"`
	Low    []Recommendation `json:"low" toon:"low"`
}

// Recommendations groups suggestions by kind of change.
type Recommendations struct {
	FilesToRemove         []Recommendation `json:"filesToRemove" toon:"filesToRemove"`
	CodesToConsolidate    []Recommendation `json:"codesToConsolidate" toon:"codesToConsolidate"`
	UtilitiesToCreate     []Recommendation `json:"utilitiesToCreate" toon:"utilitiesToCreate"`
	DependenciesToCleanup []Recommendation `json:"dependenciesToCleanup" toon:"dependenciesToCleanup"`
	ConfigurationsToUnify []Recommendation `json:"configurationsToUnify" toon:"configurationsToUnify"`
	CyclesToBreak         []Recommendation `json:"cyclesToBreak" toon:"cyclesToBreak"`
	LinksToFix            []Recommendation `json:"linksToFix" toon:"linksToFix"`
	Priority              Priority         `json:"priority" toon:"priority"`
}

// All returns every recommendation ordered high, medium, low.
func (r *Recommendations) All() []Recommendation {
	all := make([]Recommendation, 0, len(r.Priority.High)+len(r.Priority.Medium)+len(r.Priority.Low))
	all = append(all, r.Priority.High...)
	all = append(all, r.Priority.Medium...)
	return append(all, r.Priority.Low...)
}

// Count returns the total number of recommendations.
func (r *Recommendations) Count() int {
	return len(r.Priority.High) + len(r.Priority.Medium) + len(r.Priority.Low)
}

func recommend(sess *Session) Recommendations {
	var recs Recommendations
	dead := sess.DeadCode
	dup := sess.Duplicates
	red := sess.Redundancy

	for _, c := range dead.Candidates {
		rec := Recommendation{
			Type:    TypeRemoveFile,
			Targets: []string{c.File},
			Impact:  ImpactMedium,
			Action:  fmt.Sprintf("Remove %s (%s)", c.File, joinReasons(c.Reasons)),
			Safety:  string(c.Safety),
		}
		if c.HasReason(deadcode.ReasonEmpty) || c.HasReason(deadcode.ReasonEmptyTest) {
			rec.Type = TypeRemoveEmptyFile
			rec.Impact = ImpactLow
			rec.Action = fmt.Sprintf("Remove empty file %s", c.File)
		}
		recs.FilesToRemove = append(recs.FilesToRemove, rec)
	}
	for _, dir := range red.EmptyDirectories {
		recs.FilesToRemove = append(recs.FilesToRemove, Recommendation{
			Type:    TypeRemoveEmptyDirectory,
			Targets: []string{dir},
			Impact:  ImpactLow,
			Action:  fmt.Sprintf("Remove empty directory %s", dir),
			Safety:  string(deadcode.SafetySafe),
		})
	}

	for _, g := range red.IdenticalFiles {
		recs.CodesToConsolidate = append(recs.CodesToConsolidate, Recommendation{
			Type:    TypeConsolidateIdentical,
			Targets: g.Files,
			Impact:  ImpactMedium,
			Action: fmt.Sprintf("Keep one of %d identical files and point the rest at it (reclaims %s)",
				len(g.Files), humanize.Bytes(uint64(g.Reclaimable))),
			Safety: string(deadcode.SafetyReviewRequired),
		})
	}
	for _, g := range dup.ExactBlocks {
		targets := make([]string, 0, len(g.Instances))
		for _, inst := range g.Instances {
			targets = append(targets, fmt.Sprintf("%s:%d-%d", inst.File, inst.StartLine, inst.EndLine))
		}
		recs.CodesToConsolidate = append(recs.CodesToConsolidate, Recommendation{
			Type:    TypeConsolidateBlock,
			Targets: targets,
			Impact:  ImpactMedium,
			Action:  fmt.Sprintf("Extract the %d-line block repeated %d times (saves ~%d lines)", g.Lines, len(g.Instances), g.EstimatedSavings),
		})
	}
	for _, g := range dup.NearDuplicates {
		targets := make([]string, 0, len(g.Functions))
		for _, fn := range g.Functions {
			targets = append(targets, fmt.Sprintf("%s:%s", fn.File, fn.Name))
		}
		recs.CodesToConsolidate = append(recs.CodesToConsolidate, Recommendation{
			Type:    TypeConsolidateSimilar,
			Targets: targets,
			Impact:  ImpactMedium,
			Action:  fmt.Sprintf("Merge %d near-duplicate functions (%.0f%% similar)", len(g.Functions), g.Similarity*100),
		})
	}

	for _, g := range dup.FunctionClusters {
		targets := make([]string, 0, len(g.Functions))
		for _, fn := range g.Functions {
			targets = append(targets, fmt.Sprintf("%s:%s", fn.File, fn.Name))
		}
		recs.UtilitiesToCreate = append(recs.UtilitiesToCreate, Recommendation{
			Type:    TypeExtractUtility,
			Targets: targets,
			Impact:  ImpactHigh,
			Action:  fmt.Sprintf("Create a shared %s utility for %d structurally identical functions", g.SuggestedName, len(g.Functions)),
		})
	}

	for _, d := range dup.Dependencies {
		rec := Recommendation{
			Type:    TypeHoistDependency,
			Targets: d.Manifests,
			Impact:  ImpactMedium,
			Action:  fmt.Sprintf("Declare %s once in a shared manifest", d.Name),
		}
		if d.VersionConflict {
			rec.Type = TypeAlignDependencyVersion
			rec.Impact = ImpactHigh
			rec.Action = fmt.Sprintf("Align %s on one version (found %s)", d.Name, strings.Join(d.Versions, ", "))
		}
		recs.DependenciesToCleanup = append(recs.DependenciesToCleanup, rec)
	}
	for _, d := range sess.UnusedDeps {
		recs.DependenciesToCleanup = append(recs.DependenciesToCleanup, Recommendation{
			Type:    TypeRemoveDependency,
			Targets: []string{d.Manifest},
			Impact:  ImpactLow,
			Action:  fmt.Sprintf("Remove unused dependency %s from %s", d.Name, d.Manifest),
			Safety:  string(deadcode.SafetyReviewRequired),
		})
	}

	for _, p := range dup.ConfigPatterns {
		recs.ConfigurationsToUnify = append(recs.ConfigurationsToUnify, Recommendation{
			Type:    TypeUnifyConfiguration,
			Targets: p.Files,
			Impact:  ImpactHigh,
			Action:  fmt.Sprintf("Move the repeated %s setup into one shared module", p.Tag),
		})
	}

	for _, cycle := range sess.Cycles {
		recs.CyclesToBreak = append(recs.CyclesToBreak, Recommendation{
			Type:    TypeBreakCycle,
			Targets: cycle,
			Impact:  ImpactMedium,
			Action:  fmt.Sprintf("Break the import cycle %s", strings.Join(append(append([]string(nil), cycle...), cycle[0]), " -> ")),
		})
	}

	for _, l := range sess.BrokenLinks {
		recs.LinksToFix = append(recs.LinksToFix, Recommendation{
			Type:    TypeFixLink,
			Targets: []string{fmt.Sprintf("%s:%d", l.File, l.Line)},
			Impact:  ImpactLow,
			Action:  fmt.Sprintf("Fix link to %s (%s)", l.Target, l.Reason),
		})
	}

	recs.prioritize()
	recs.fillEmpty()
	return recs
}

func (r *Recommendations) prioritize() {
	groups := [][]Recommendation{
		r.FilesToRemove,
		r.CodesToConsolidate,
		r.UtilitiesToCreate,
		r.DependenciesToCleanup,
		r.ConfigurationsToUnify,
		r.CyclesToBreak,
		r.LinksToFix,
	}
	for _, group := range groups {
		for _, rec := range group {
			switch rec.Impact {
			case ImpactHigh:
				r.Priority.High = append(r.Priority.High, rec)
			case ImpactMedium:
				r.Priority.Medium = append(r.Priority.Medium, rec)
			default:
				r.Priority.Low = append(r.Priority.Low, rec)
			}
		}
	}
	// stable: category order is kept inside each bucket
	for _, bucket := range [][]Recommendation{r.Priority.High, r.Priority.Medium, r.Priority.Low} {
		sort.SliceStable(bucket, func(i, j int) bool {
			return categoryRank(bucket[i].Type) < categoryRank(bucket[j].Type)
		})
	}
}

var categoryOrder = []string{
	TypeAlignDependencyVersion,
	TypeExtractUtility,
	TypeUnifyConfiguration,
	TypeRemoveFile,
	TypeConsolidateBlock,
	TypeConsolidateSimilar,
	TypeConsolidateIdentical,
	TypeHoistDependency,
	TypeBreakCycle,
	TypeRemoveEmptyFile,
	TypeRemoveEmptyDirectory,
	TypeRemoveDependency,
	TypeFixLink,
}

func categoryRank(t string) int {
	for i, c := range categoryOrder {
		if c == t {
			return i
		}
	}
	return len(categoryOrder)
}

func (r *Recommendations) fillEmpty() {
	for _, s := range []*[]Recommendation{
		&r.FilesToRemove, &r.CodesToConsolidate, &r.UtilitiesToCreate,
		&r.DependenciesToCleanup, &r.ConfigurationsToUnify, &r.CyclesToBreak,
		&r.LinksToFix, &r.Priority.High, &r.Priority.Medium, &r.Priority.Low,
	} {
		if *s == nil {
			*s = []Recommendation{}
		}
	}
}

func joinReasons(reasons []deadcode.Reason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
