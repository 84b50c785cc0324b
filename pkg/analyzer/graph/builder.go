package graph

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/panbanda/sift/pkg/source"
)

// Builder turns extracted facts into a DependencyGraph.
type Builder struct {
	logger *slog.Logger
}

// Option is a functional option for configuring Builder.
type Option func(*Builder)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a new graph builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build inserts every file as a node and every resolvable import as an
// edge. Only files in the files list can be import targets. Imports with
// computed arguments are recorded as issues and never resolved.
func (b *Builder) Build(files []string, fileFacts map[string]*facts.FileFacts) *DependencyGraph {
	g := NewDependencyGraph()
	known := make(map[string]struct{}, len(files))
	for _, f := range files {
		known[f] = struct{}{}
		g.AddNode(f)
	}
	exists := func(rel string) bool {
		_, ok := known[rel]
		return ok
	}

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	for _, src := range sorted {
		ff, ok := fileFacts[src]
		if !ok || !source.IsJSLike(ff.Ext) {
			continue
		}
		for _, imp := range ff.Imports {
			if imp.Computed {
				g.addIssue(Issue{Kind: IssueComputed, Source: src, Specifier: imp.Specifier, Line: imp.Line})
				continue
			}

			res, err := Resolve(src, imp.Specifier, exists)
			if err != nil {
				kind := IssueUnresolved
				if errors.Is(err, ErrEscapesRoot) {
					kind = IssueEscapes
				}
				g.addIssue(Issue{Kind: kind, Source: src, Specifier: imp.Specifier, Line: imp.Line})
				b.logger.Debug("import not resolved", "file", src, "specifier", imp.Specifier, "reason", err)
				continue
			}
			if res.Ambiguous() {
				g.addIssue(Issue{
					Kind:       IssueAmbiguous,
					Source:     src,
					Specifier:  imp.Specifier,
					Line:       imp.Line,
					Candidates: res.Candidates,
				})
			}

			g.AddEdge(Edge{
				Source:    src,
				Target:    res.Target,
				Specifier: imp.Specifier,
				Line:      imp.Line,
				Kind:      imp.Kind,
			})
		}
	}
	return g
}

func isJSLike(ext string) bool {
	return source.IsJSLike(ext)
}
