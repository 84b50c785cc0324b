// Package redundancy reports empty files, byte-identical files and
// directories that hold nothing.
package redundancy

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/panbanda/sift/pkg/source"
	"github.com/zeebo/blake3"
)

// Filter decides which directories the empty-directory walk prunes.
// Pruned directories count as non-empty.
type Filter interface {
	SkipDir(rel string) bool
}

// File is a scanned file with its content.
type File struct {
	Record  source.FileRecord
	Content []byte
}

// EmptyFile is a file whose content is only whitespace.
type EmptyFile struct {
	File string `json:"file" toon:"file"`
	Size int64  `json:"size" toon:"size"`
}

// IdenticalGroup is a set of files with the same content hash.
type IdenticalGroup struct {
	Hash        string   `json:"hash" toon:"hash"`
	Size        int64    `json:"size" toon:"size"`
	Files       []string `json:"files" toon:"files"`
	Reclaimable int64    `json:"reclaimableBytes" toon:"reclaimableBytes"`
}

// Warning records a directory the walk could not read.
type Warning struct {
	Path    string `json:"path" toon:"path"`
	Message string `json:"message" toon:"message"`
}

// Analysis is the redundancy result.
type Analysis struct {
	EmptyFiles       []EmptyFile      `json:"emptyFiles" toon:"emptyFiles"`
	EmptyDirectories []string         `json:"emptyDirectories" toon:"emptyDirectories"`
	IdenticalFiles   []IdenticalGroup `json:"identicalFiles" toon:"identicalFiles"`
	ReclaimableBytes int64            `json:"reclaimableBytes" toon:"reclaimableBytes"`
	Warnings         []Warning        `json:"warnings,omitempty" toon:"warnings,omitempty"`
}

// Analyzer finds redundant files and directories.
type Analyzer struct {
	logger *slog.Logger
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger for walk warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a new redundancy analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Hash returns the hex blake3 digest of content.
func Hash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// IsEmpty reports whether content is empty after trimming whitespace.
func IsEmpty(content []byte) bool {
	return len(bytes.TrimSpace(content)) == 0
}

// Analyze classifies files and walks root for empty directories.
// filter may be nil.
func (a *Analyzer) Analyze(ctx context.Context, root string, files []File, filter Filter) (*Analysis, error) {
	analysis := &Analysis{}

	byHash := make(map[string][]File)
	for _, f := range files {
		if IsEmpty(f.Content) {
			analysis.EmptyFiles = append(analysis.EmptyFiles, EmptyFile{File: f.Record.RelPath, Size: f.Record.Size})
			continue
		}
		h := Hash(f.Content)
		byHash[h] = append(byHash[h], f)
	}
	sort.Slice(analysis.EmptyFiles, func(i, j int) bool {
		return analysis.EmptyFiles[i].File < analysis.EmptyFiles[j].File
	})

	for h, members := range byHash {
		if len(members) < 2 {
			continue
		}
		g := IdenticalGroup{Hash: h, Size: int64(len(members[0].Content))}
		for _, m := range members {
			g.Files = append(g.Files, m.Record.RelPath)
		}
		sort.Strings(g.Files)
		g.Reclaimable = int64(len(members)-1) * g.Size
		analysis.ReclaimableBytes += g.Reclaimable
		analysis.IdenticalFiles = append(analysis.IdenticalFiles, g)
	}
	sort.Slice(analysis.IdenticalFiles, func(i, j int) bool {
		gi, gj := analysis.IdenticalFiles[i], analysis.IdenticalFiles[j]
		if gi.Reclaimable != gj.Reclaimable {
			return gi.Reclaimable > gj.Reclaimable
		}
		return gi.Files[0] < gj.Files[0]
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirs, err := a.EmptyDirectories(ctx, root, filter, &analysis.Warnings)
	if err != nil {
		return nil, err
	}
	analysis.EmptyDirectories = dirs
	return analysis, nil
}

// EmptyDirectories walks root post-order. A directory is empty when it
// contains no files and every child directory is empty. The result is
// ordered deepest first and never includes root itself. Unreadable
// directories are recorded in warnings and treated as non-empty.
func (a *Analyzer) EmptyDirectories(ctx context.Context, root string, filter Filter, warnings *[]Warning) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.ReadDir(absRoot); err != nil {
		return nil, err
	}

	var empty []string
	var visit func(rel string) (bool, error)
	visit = func(rel string) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		entries, err := os.ReadDir(filepath.Join(absRoot, filepath.FromSlash(rel)))
		if err != nil {
			a.logger.Warn("skipping unreadable directory", "path", rel, "error", err)
			if warnings != nil {
				*warnings = append(*warnings, Warning{Path: rel, Message: err.Error()})
			}
			return false, nil
		}

		isEmpty := true
		for _, e := range entries {
			if !e.IsDir() {
				isEmpty = false
				continue
			}
			child := e.Name()
			if rel != "." {
				child = rel + "/" + e.Name()
			}
			if filter != nil && filter.SkipDir(child) {
				isEmpty = false
				continue
			}
			childEmpty, err := visit(child)
			if err != nil {
				return false, err
			}
			if childEmpty {
				empty = append(empty, child)
			} else {
				isEmpty = false
			}
		}
		return isEmpty, nil
	}

	if _, err := visit("."); err != nil {
		return nil, err
	}

	sort.SliceStable(empty, func(i, j int) bool {
		di, dj := depth(empty[i]), depth(empty[j])
		if di != dj {
			return di > dj
		}
		return empty[i] < empty[j]
	})
	return empty, nil
}

func depth(rel string) int {
	return strings.Count(path.Clean(rel), "/")
}
