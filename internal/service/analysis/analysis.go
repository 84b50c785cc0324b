// Package analysis runs the full redundancy analysis pipeline over a source
// tree and assembles the result, scores and recommendations.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/panbanda/sift/internal/cache"
	"github.com/panbanda/sift/internal/fileproc"
	"github.com/panbanda/sift/internal/scanner"
	"github.com/panbanda/sift/pkg/analyzer/deadcode"
	"github.com/panbanda/sift/pkg/analyzer/duplicates"
	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/panbanda/sift/pkg/analyzer/graph"
	"github.com/panbanda/sift/pkg/analyzer/links"
	"github.com/panbanda/sift/pkg/analyzer/redundancy"
	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/source"
)

// Options are the per-run inputs.
type Options struct {
	Root        string
	EntryPoints []string
	// IncludeTests overrides the configured scan.include_tests when set.
	IncludeTests           *bool
	IncludeDependencyCache bool
	// OnStage is called before each pipeline stage starts.
	OnStage func(stage string)
	// OnFile is called after each file is read.
	OnFile fileproc.ProgressFunc
}

// Service orchestrates analysis runs. It holds configuration only; all
// run state lives in a Session.
type Service struct {
	config *config.Config
	logger *slog.Logger
	source source.ContentSource
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithContentSource replaces the filesystem reader (for testing).
func WithContentSource(src source.ContentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.DefaultConfig(),
		logger: slog.Default(),
		source: source.NewFilesystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

type stage struct {
	name string
	run  func(context.Context, *Session) error
}

// Analyze runs scan, fact extraction, graph building, reachability,
// duplication, redundancy and link checks, then scores the tree and builds
// recommendations. Per-file problems become annotations; a missing root,
// an invariant violation or cancellation aborts the run.
func (s *Service) Analyze(ctx context.Context, opts Options) (*Result, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &PathError{Path: root, Err: err}
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, &PathError{Path: root, Err: err}
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	if !info.IsDir() {
		return nil, &PathError{Path: root, Err: errors.New("not a directory")}
	}

	cfg := *s.config
	if opts.IncludeTests != nil {
		cfg.Scan.IncludeTests = *opts.IncludeTests
	}
	if opts.IncludeDependencyCache {
		cfg.Scan.IncludeDependencyCache = true
	}

	sess := newSession(absRoot, &cfg, opts)
	s.logger.Debug("analysis started", "run", sess.RunID, "root", absRoot)

	stages := []stage{
		{"scan", s.scan},
		{"load", s.load},
		{"facts", s.extract},
		{"graph", s.buildGraph},
		{"deadcode", s.classify},
		{"duplicates", s.detectDuplicates},
		{"redundancy", s.findRedundancy},
		{"links", s.checkLinks},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.OnStage != nil {
			opts.OnStage(st.name)
		}
		if err := st.run(ctx, sess); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, &StageError{Stage: st.name, Err: err}
		}
	}

	result := buildResult(sess)
	s.logger.Debug("analysis finished", "run", sess.RunID, "files", len(sess.Records), "annotations", len(sess.Annotations))
	return result, nil
}

func (s *Service) scan(ctx context.Context, sess *Session) error {
	sc := scanner.NewScanner(sess.Config, s.logger)
	records, err := sc.Scan(ctx, sess.Root)
	if err != nil {
		return err
	}
	for _, w := range sc.Warnings() {
		sess.annotate(w.Path, "scan", w.Message)
	}
	sess.Records = records
	sess.filter = sc
	return nil
}

func (s *Service) load(ctx context.Context, sess *Session) error {
	loaded := fileproc.ReadAll(ctx, s.source, sess.Records, sess.Config.Scan.Workers, sess.Options.OnFile)
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs := fileproc.CollectErrors(loaded); errs.HasErrors() {
		s.logger.Warn("reading files failed", "count", len(errs.Errors), "error", errs)
		for _, e := range errs.Errors {
			sess.annotate(e.Path, "load", e.Err.Error())
		}
	}
	for i, l := range loaded {
		if l.Err != nil {
			continue
		}
		sess.Contents[l.Record.RelPath] = l.Content
		// whitespace-only files are empty even though their size is not zero
		if i < len(sess.Records) && sess.Records[i].RelPath == l.Record.RelPath {
			sess.Records[i].Empty = len(bytes.TrimSpace(l.Content)) == 0
		}
	}
	return nil
}

func (s *Service) extract(_ context.Context, sess *Session) error {
	fc := s.openCache(sess)
	reports := make(map[string]struct{})
	for _, rel := range sess.Config.ReportPaths(sess.Root) {
		reports[rel] = struct{}{}
	}
	for _, rec := range sess.Records {
		content, ok := sess.Contents[rec.RelPath]
		if !ok {
			continue
		}
		if source.IsJSLike(rec.Ext) {
			ff := s.extractFacts(fc, rec, content)
			for _, e := range ff.Errors {
				sess.annotate(rec.RelPath, "facts", e)
			}
			sess.Facts[rec.RelPath] = ff
		}
		if facts.IsManifest(rec.RelPath) {
			m := facts.ParseManifest(rec.RelPath, content)
			for _, e := range m.Errors {
				sess.annotate(rec.RelPath, "manifest", e)
			}
			sess.Manifests = append(sess.Manifests, m)
		}
		if _, saved := reports[rec.RelPath]; saved {
			continue
		}
		if facts.IsConfigFile(rec.RelPath) {
			sess.ConfigTexts[rec.RelPath] = string(content)
		}
	}

	if stats, err := fc.GetStats(); err == nil && fc.Enabled() {
		s.logger.Debug("facts cache", "hits", stats.Hits, "misses", stats.Misses, "entries", stats.Entries)
	}

	// build files outside the extension allow-list are read directly
	for _, name := range facts.RootBuildFiles {
		if _, ok := sess.ConfigTexts[name]; ok {
			continue
		}
		content, err := os.ReadFile(filepath.Join(sess.Root, name))
		if err != nil {
			continue
		}
		sess.ConfigTexts[name] = string(content)
	}
	return nil
}

// openCache opens the facts cache under the root. Failing to open it only
// disables caching for the run.
func (s *Service) openCache(sess *Session) *cache.Cache {
	cc := sess.Config.Cache
	if !cc.Enabled {
		return cache.Disabled()
	}
	dir := sess.Config.CacheDir(sess.Root)
	fc, err := cache.New(dir, time.Duration(cc.TTL)*time.Hour, true)
	if err != nil {
		s.logger.Warn("facts cache unavailable", "dir", dir, "error", err)
		sess.annotate(cc.Dir, "cache", err.Error())
		return cache.Disabled()
	}
	return fc
}

func (s *Service) extractFacts(fc *cache.Cache, rec source.FileRecord, content []byte) *facts.FileFacts {
	if !fc.Enabled() {
		return facts.Extract(rec, content)
	}
	hash := cache.HashBytes(content)
	if ff, ok := fc.Get(rec.RelPath, hash); ok {
		return ff
	}
	ff := facts.Extract(rec, content)
	if err := fc.Put(rec.RelPath, hash, ff); err != nil {
		s.logger.Debug("caching facts failed", "path", rec.RelPath, "error", err)
	}
	return ff
}

func (s *Service) buildGraph(_ context.Context, sess *Session) error {
	files := make([]string, 0, len(sess.Records))
	for _, rec := range sess.Records {
		files = append(files, rec.RelPath)
	}
	g := graph.NewBuilder(graph.WithLogger(s.logger)).Build(files, sess.Facts)
	if err := g.VerifyTranspose(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	for _, issue := range g.Issues() {
		if issue.Kind == graph.IssueEscapes {
			sess.annotate(issue.Source, "graph", fmt.Sprintf("import %q escapes the root", issue.Specifier))
		}
	}
	sess.Graph = g
	sess.Cycles = g.DetectCycles()
	sess.Orphans = g.Orphans(sess.Facts)
	return nil
}

func (s *Service) classify(ctx context.Context, sess *Session) error {
	var entries []string
	entries = append(entries, sess.Config.Entry.Points...)
	entries = append(entries, sess.Options.EntryPoints...)

	analyzer := deadcode.New(
		deadcode.WithEntryPoints(entries),
		deadcode.WithEntryNames(sess.Config.Entry.Names),
		deadcode.WithIncludeTests(sess.Config.Scan.IncludeTests),
		deadcode.WithTestEntries(sess.Config.Entry.Tests),
	)
	analysis, err := analyzer.Analyze(ctx, deadcode.Input{
		Files:       sess.Records,
		Facts:       sess.Facts,
		Manifests:   sess.Manifests,
		Graph:       sess.Graph,
		ConfigTexts: sess.ConfigTexts,
	})
	if err != nil {
		return err
	}
	sess.DeadCode = analysis
	sess.UnusedDeps = deadcode.UnusedDependencies(sess.Manifests, sess.Graph.External(), sess.ConfigTexts)
	return nil
}

func (s *Service) detectDuplicates(ctx context.Context, sess *Session) error {
	in := duplicates.Input{Manifests: sess.Manifests}
	for _, rec := range sess.Records {
		if content, ok := sess.Contents[rec.RelPath]; ok {
			in.Files = append(in.Files, duplicates.File{RelPath: rec.RelPath, Ext: rec.Ext, Content: content})
		}
	}
	analysis, err := duplicates.New(duplicates.WithThresholds(sess.Config.Thresholds)).Detect(ctx, in)
	if err != nil {
		return err
	}
	sess.Duplicates = analysis
	return nil
}

func (s *Service) findRedundancy(ctx context.Context, sess *Session) error {
	files := make([]redundancy.File, 0, len(sess.Records))
	for _, rec := range sess.Records {
		if content, ok := sess.Contents[rec.RelPath]; ok {
			files = append(files, redundancy.File{Record: rec, Content: content})
		}
	}
	analysis, err := redundancy.New(redundancy.WithLogger(s.logger)).Analyze(ctx, sess.Root, files, sess.filter)
	if err != nil {
		return err
	}
	for _, w := range analysis.Warnings {
		sess.annotate(w.Path, "redundancy", w.Message)
	}
	sess.Redundancy = analysis
	return nil
}

func (s *Service) checkLinks(ctx context.Context, sess *Session) error {
	var docs []links.Document
	for _, rec := range sess.Records {
		if !links.IsMarkdown(rec.RelPath) {
			continue
		}
		if content, ok := sess.Contents[rec.RelPath]; ok {
			docs = append(docs, links.Document{RelPath: rec.RelPath, Content: content})
		}
	}
	broken, err := links.New(sess.Root).Check(ctx, docs)
	if err != nil {
		return err
	}
	sess.BrokenLinks = broken
	return nil
}
