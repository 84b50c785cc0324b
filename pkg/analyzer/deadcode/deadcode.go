// Package deadcode identifies files that no entry point can reach and
// decides whether each is safe to delete.
package deadcode

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/gobwas/glob"
	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/panbanda/sift/pkg/analyzer/graph"
	"github.com/panbanda/sift/pkg/source"
)

// DefaultEntryNames are basenames (without extension) treated as entry points.
var DefaultEntryNames = []string{"index", "main", "app", "server", "start", "entry"}

// scriptInvocationRe finds runner invocations inside manifest scripts.
// The captured tail is scanned for the first non-flag argument.
var scriptInvocationRe = regexp.MustCompile(`(?:^|[\s;&|(])(?:node|nodemon|ts-node|tsx|babel-node|pm2\s+start|forever\s+start)((?:\s+[^\s;&|)]+)+)`)

// ReachSet tracks reachability over file indexes using a Roaring bitmap.
type ReachSet struct {
	bitmap *roaring.Bitmap
}

// NewReachSet creates an empty set.
func NewReachSet() *ReachSet {
	return &ReachSet{bitmap: roaring.New()}
}

// Set marks a file index as reachable.
func (r *ReachSet) Set(index uint32) {
	r.bitmap.Add(index)
}

// IsSet checks if a file index is reachable.
func (r *ReachSet) IsSet(index uint32) bool {
	return r.bitmap.Contains(index)
}

// CountSet returns the number of reachable files.
func (r *ReachSet) CountSet() uint64 {
	return r.bitmap.GetCardinality()
}

// SetBatch marks multiple indexes as reachable.
func (r *ReachSet) SetBatch(indices []uint32) {
	r.bitmap.AddMany(indices)
}

// Input is everything the analyzer needs from earlier pipeline stages.
type Input struct {
	// Files are all scanned files.
	Files []source.FileRecord
	// Facts are keyed by relative path; only JavaScript-like files need entries.
	Facts     map[string]*facts.FileFacts
	Manifests []*facts.Manifest
	Graph     *graph.DependencyGraph
	// ConfigTexts maps configuration file paths to their content. Candidates
	// mentioned in any of them require review before removal.
	ConfigTexts map[string]string
}

// Analyzer classifies unused files.
type Analyzer struct {
	entryPatterns []string
	entryNames    []string
	includeTests  bool
	testEntries   bool
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithEntryPoints adds caller-supplied entry paths or glob patterns.
func WithEntryPoints(patterns []string) Option {
	return func(a *Analyzer) {
		a.entryPatterns = append(a.entryPatterns, patterns...)
	}
}

// WithEntryNames replaces the conventional entry basenames.
func WithEntryNames(names []string) Option {
	return func(a *Analyzer) {
		if len(names) > 0 {
			a.entryNames = names
		}
	}
}

// WithIncludeTests controls whether test files are classified.
func WithIncludeTests(include bool) Option {
	return func(a *Analyzer) {
		a.includeTests = include
	}
}

// WithTestEntries makes test files that call a test runner entry points.
// Off by default, so a module reachable only from its own tests is unused.
func WithTestEntries(enabled bool) Option {
	return func(a *Analyzer) {
		a.testEntries = enabled
	}
}

// New creates a new dead file analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		entryNames:   DefaultEntryNames,
		includeTests: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze identifies entry points, computes the reachability closure and
// classifies every JavaScript-like file that is not an entry point.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	if in.Graph == nil {
		return nil, fmt.Errorf("deadcode: nil dependency graph")
	}

	entries, err := a.EntryPoints(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reach, index := a.markReachable(in.Graph, entries)

	analysis := &Analysis{
		EntryPoints: entries.Map(),
		Summary: Summary{
			EntryPoints: entries.Len(),
			Reachable:   int(reach.CountSet()),
		},
	}
	for _, n := range in.Graph.Nodes() {
		if reach.IsSet(index[n]) {
			analysis.Reachable = append(analysis.Reachable, n)
		}
	}

	for _, rec := range in.Files {
		if !source.IsJSLike(rec.Ext) {
			continue
		}
		isTest := source.IsTestPath(rec.RelPath)
		if isTest && !a.includeTests {
			continue
		}
		analysis.Summary.ClassifiedFiles++

		// Entry-point membership is an absolute override.
		if entries.Contains(rec.RelPath) {
			continue
		}

		ff := in.Facts[rec.RelPath]
		var reasons []Reason
		if in.Graph.InDegree(rec.RelPath) == 0 {
			reasons = append(reasons, ReasonNoInbound)
		}
		idx, inGraph := index[rec.RelPath]
		if !inGraph || !reach.IsSet(idx) {
			reasons = append(reasons, ReasonUnreachable)
		}
		if (ff != nil && ff.IsEmptyLike()) || (ff == nil && rec.Empty) {
			reasons = append(reasons, ReasonEmpty)
		}
		if isTest && (ff == nil || !ff.HasTestCalls) {
			reasons = append(reasons, ReasonEmptyTest)
		}
		if len(reasons) == 0 {
			continue
		}

		c := Candidate{File: rec.RelPath, Size: rec.Size, Reasons: reasons}
		gate(&c, in.ConfigTexts)
		analysis.Candidates = append(analysis.Candidates, c)
	}

	for _, c := range analysis.Candidates {
		analysis.Summary.Unused++
		if c.HasReason(ReasonEmpty) {
			analysis.Summary.Empty++
		}
		if c.HasReason(ReasonEmptyTest) {
			analysis.Summary.EmptyTests++
		}
		if c.IsSafe() {
			analysis.Summary.Safe++
		} else {
			analysis.Summary.ReviewRequired++
		}
	}
	return analysis, nil
}

// EntryPoints builds the entry-point set from caller patterns, manifests,
// naming conventions and tooling configuration files.
func (a *Analyzer) EntryPoints(in Input) (*EntryPointSet, error) {
	set := NewEntryPointSet()
	known := make(map[string]struct{}, len(in.Files))
	for _, rec := range in.Files {
		known[rec.RelPath] = struct{}{}
	}
	exists := func(rel string) bool {
		_, ok := known[rel]
		return ok
	}

	if err := a.addCallerEntries(set, in.Files, exists); err != nil {
		return nil, err
	}

	for _, m := range in.Manifests {
		if m.Main != "" {
			if target, ok := resolveManifestPath(m, m.Main, exists); ok {
				set.Add(target, EntryManifestMain)
			}
		}
		for _, name := range sortedMapKeys(m.Bin) {
			if target, ok := resolveManifestPath(m, m.Bin[name], exists); ok {
				set.Add(target, EntryManifestBin)
			}
		}
		for _, name := range sortedMapKeys(m.Scripts) {
			for _, p := range ScriptTargets(m.Scripts[name]) {
				if target, ok := resolveManifestPath(m, p, exists); ok {
					set.Add(target, EntryManifestScript)
				}
			}
		}
	}

	names := make(map[string]struct{}, len(a.entryNames))
	for _, n := range a.entryNames {
		names[n] = struct{}{}
	}
	for _, rec := range in.Files {
		if !source.IsJSLike(rec.Ext) {
			continue
		}
		if _, ok := names[source.Stem(rec.RelPath)]; ok {
			set.Add(rec.RelPath, EntryConvention)
		}
		if facts.IsToolingConfig(rec.RelPath) {
			set.Add(rec.RelPath, EntryToolingConfig)
		}
		if a.testEntries && a.includeTests && source.IsTestPath(rec.RelPath) {
			if ff := in.Facts[rec.RelPath]; ff != nil && ff.HasTestCalls {
				set.Add(rec.RelPath, EntryTestRunner)
			}
		}
	}
	return set, nil
}

func (a *Analyzer) addCallerEntries(set *EntryPointSet, files []source.FileRecord, exists func(string) bool) error {
	for _, pattern := range a.entryPatterns {
		p := strings.TrimPrefix(path.Clean(strings.ReplaceAll(pattern, "\\", "/")), "./")
		if !strings.ContainsAny(p, "*?[{") {
			if exists(p) {
				set.Add(p, EntryCaller)
				continue
			}
			// extensionless paths resolve like imports
			if res, err := graph.Resolve(".", "./"+p, exists); err == nil {
				set.Add(res.Target, EntryCaller)
			}
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return fmt.Errorf("invalid entry pattern %q: %w", pattern, err)
		}
		for _, rec := range files {
			if g.Match(rec.RelPath) {
				set.Add(rec.RelPath, EntryCaller)
			}
		}
	}
	return nil
}

// ScriptTargets returns the file arguments passed to known runners in a
// manifest script command. Flags and arguments that do not look like a
// script path are skipped.
func ScriptTargets(script string) []string {
	var targets []string
	for _, m := range scriptInvocationRe.FindAllStringSubmatch(script, -1) {
		for _, arg := range strings.Fields(m[1]) {
			if strings.HasPrefix(arg, "-") {
				continue
			}
			arg = strings.Trim(arg, `"'`)
			ext := path.Ext(arg)
			if source.IsJSLike(ext) || (ext == "" && strings.Contains(arg, "/")) {
				targets = append(targets, arg)
				break
			}
		}
	}
	return targets
}

func resolveManifestPath(m *facts.Manifest, p string, exists func(string) bool) (string, bool) {
	spec := strings.TrimPrefix(p, "/")
	if !graph.IsRelative(spec) {
		spec = "./" + spec
	}
	res, err := graph.Resolve(m.Path, spec, exists)
	if err != nil || res.External {
		return "", false
	}
	return res.Target, true
}

// markReachable runs a breadth-first search from the entry points over
// forward edges and returns the closure plus the node index used.
func (a *Analyzer) markReachable(g *graph.DependencyGraph, entries *EntryPointSet) (*ReachSet, map[string]uint32) {
	nodes := g.Nodes()
	index := make(map[string]uint32, len(nodes))
	for i, n := range nodes {
		index[n] = uint32(i)
	}

	reach := NewReachSet()
	queue := make([]string, 0, entries.Len())
	seeds := make([]uint32, 0, entries.Len())
	for _, p := range entries.Paths() {
		if idx, ok := index[p]; ok {
			seeds = append(seeds, idx)
			queue = append(queue, p)
		}
	}
	reach.SetBatch(seeds)

	// BFS traversal using index-based queue (avoids O(n) slice reslicing)
	for head := 0; head < len(queue); head++ {
		for _, next := range g.Forward(queue[head]) {
			idx := index[next]
			if !reach.IsSet(idx) {
				reach.Set(idx)
				queue = append(queue, next)
			}
		}
	}
	return reach, index
}

// gate applies the configuration-reference safety check. A candidate whose
// basename or stem appears in any configuration text needs review, unless
// it is empty: removing empty content cannot change behaviour.
func gate(c *Candidate, configTexts map[string]string) {
	base := path.Base(c.File)
	stem := source.Stem(c.File)

	paths := make([]string, 0, len(configTexts))
	for p := range configTexts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if p == c.File {
			continue
		}
		text := configTexts[p]
		switch {
		case strings.Contains(text, base):
			c.SafetyWarnings = append(c.SafetyWarnings, fmt.Sprintf("%s is referenced in %s", base, p))
		case stem != "" && strings.Contains(text, stem):
			c.SafetyWarnings = append(c.SafetyWarnings, fmt.Sprintf("%s is referenced in %s", stem, p))
		}
	}

	c.Confidence = ConfidenceHigh
	if len(c.SafetyWarnings) > 0 {
		c.Confidence = ConfidenceMedium
	}
	c.Safety = SafetySafe
	if len(c.SafetyWarnings) > 0 && !c.HasReason(ReasonEmpty) {
		c.Safety = SafetyReviewRequired
	}
}

func sortedMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
