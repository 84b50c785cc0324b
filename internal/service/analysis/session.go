package analysis

import (
	"time"

	"github.com/google/uuid"
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

// Annotation records a recoverable problem found during a run.
type Annotation struct {
	Path    string `json:"path" toon:"path"`
	Stage   string `json:"stage" toon:"stage"`
	Message string `json:"message" toon:"message"`
}

// Session holds every intermediate product of one run. It is created fresh
// by Analyze and passed by pointer through the stages; nothing in it
// outlives the run.
type Session struct {
	RunID     string
	Root      string
	StartedAt time.Time
	Config    *config.Config
	Options   Options

	Records     []source.FileRecord
	Contents    map[string][]byte
	Facts       map[string]*facts.FileFacts
	Manifests   []*facts.Manifest
	ConfigTexts map[string]string

	Graph       *graph.DependencyGraph
	Cycles      [][]string
	Orphans     []string
	DeadCode    *deadcode.Analysis
	UnusedDeps  []deadcode.UnusedDependency
	Duplicates  *duplicates.Analysis
	Redundancy  *redundancy.Analysis
	BrokenLinks []links.BrokenLink

	Annotations []Annotation

	// filter is the scanner used for the walk, reused so the empty-directory
	// search prunes exactly what the scan pruned.
	filter *scanner.Scanner
}

func newSession(root string, cfg *config.Config, opts Options) *Session {
	return &Session{
		RunID:       uuid.NewString(),
		Root:        root,
		StartedAt:   time.Now().UTC(),
		Config:      cfg,
		Options:     opts,
		Contents:    make(map[string][]byte),
		Facts:       make(map[string]*facts.FileFacts),
		ConfigTexts: make(map[string]string),
	}
}

func (s *Session) annotate(path, stage, message string) {
	s.Annotations = append(s.Annotations, Annotation{Path: path, Stage: stage, Message: message})
}

// jsLikeFiles counts the scanned files with a JavaScript-like extension.
func (s *Session) jsLikeFiles() int {
	return len(scanner.FilterJSLike(s.Records))
}
