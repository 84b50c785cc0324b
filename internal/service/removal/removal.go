// Package removal deletes files an analysis marked safe to remove. Every
// candidate is backed up before the first deletion.
package removal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/pkg/analyzer/deadcode"
	"github.com/panbanda/sift/pkg/analyzer/redundancy"
)

// ErrBackupFailed aborts a removal before anything is deleted.
var ErrBackupFailed = errors.New("backup failed")

// Status is the outcome for one file or directory.
type Status string

const (
	StatusRemoved     Status = "removed"
	StatusWouldRemove Status = "would-remove"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
)

// Candidate kinds used in the report breakdown.
const (
	KindUnused         = "unused"
	KindEmpty          = "empty"
	KindEmptyDirectory = "empty-directory"
)

// Candidate is one path to remove, relative to the root.
type Candidate struct {
	Path string `json:"path" toon:"path"`
	Size int64  `json:"size" toon:"size"`
	Kind string `json:"kind" toon:"kind"`
}

// Options control a removal run.
type Options struct {
	DryRun bool
	// BackupDir is resolved against the root when relative.
	BackupDir string
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path   string `json:"path" toon:"path"`
	Size   int64  `json:"size" toon:"size"`
	Status Status `json:"status" toon:"status"`
}

// DirectoryResult is the outcome for one directory.
type DirectoryResult struct {
	Path   string `json:"path" toon:"path"`
	Status Status `json:"status" toon:"status"`
}

// Error records a path that could not be removed.
type Error struct {
	Path    string `json:"path" toon:"path"`
	Message string `json:"message" toon:"message"`
}

// Summary holds the report totals.
type Summary struct {
	FilesRemoved       int   `json:"filesRemoved" toon:"filesRemoved"`
	DirectoriesRemoved int   `json:"directoriesRemoved" toon:"directoriesRemoved"`
	TotalSizeBytes     int64 `json:"totalSizeBytes" toon:"totalSizeBytes"`
	Errors             int   `json:"errors" toon:"errors"`
	DryRun             bool  `json:"dryRun" toon:"dryRun"`
}

// Report is the result of a removal run. A dry run has the same shape
// with would-remove statuses.
type Report struct {
	Summary     Summary           `json:"summary" toon:"summary"`
	Files       []FileResult      `json:"files" toon:"files"`
	Directories []DirectoryResult `json:"directories" toon:"directories"`
	Errors      []Error           `json:"errors" toon:"errors"`
	Breakdown   map[string]int    `json:"breakdown" toon:"breakdown"`
	BackupPath  string            `json:"backupPath,omitempty" toon:"backupPath,omitempty"`
}

// Executor removes candidates from a tree.
type Executor struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces the clock used to name backup snapshots.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromResult returns the candidates an analysis marked safe: unused or
// empty files with safety "safe", and empty directories.
func FromResult(r *analysis.Result) []Candidate {
	var out []Candidate
	for _, c := range r.Files.Unused {
		if !c.IsSafe() {
			continue
		}
		kind := KindUnused
		if c.HasReason(deadcode.ReasonEmpty) {
			kind = KindEmpty
		}
		out = append(out, Candidate{Path: c.File, Size: c.Size, Kind: kind})
	}
	for _, d := range r.Redundancy.EmptyDirectories {
		out = append(out, Candidate{Path: d, Kind: KindEmptyDirectory})
	}
	return out
}

// Remove backs up every file candidate, deletes them one at a time and
// then removes directories left empty, deepest first. A failed backup
// returns ErrBackupFailed before anything is deleted. A failed deletion is
// recorded and the batch continues.
func (e *Executor) Remove(ctx context.Context, root string, candidates []Candidate, opts Options) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Summary:     Summary{DryRun: opts.DryRun},
		Files:       []FileResult{},
		Directories: []DirectoryResult{},
		Errors:      []Error{},
		Breakdown:   make(map[string]int),
	}

	var files []Candidate
	var dirs []string
	for _, c := range candidates {
		rel, err := cleanRel(c.Path)
		if err != nil {
			report.fail(c.Path, c.Size, err)
			continue
		}
		c.Path = rel
		if c.Kind == KindEmptyDirectory {
			dirs = append(dirs, rel)
			continue
		}
		info, err := os.Lstat(filepath.Join(absRoot, filepath.FromSlash(rel)))
		switch {
		case err != nil:
			report.fail(rel, c.Size, err)
			continue
		case info.IsDir():
			report.fail(rel, c.Size, errors.New("is a directory"))
			continue
		}
		c.Size = info.Size()
		files = append(files, c)
	}

	if !opts.DryRun && len(files) > 0 {
		backup, err := e.backup(absRoot, files, opts.BackupDir)
		if err != nil {
			return nil, err
		}
		report.BackupPath = backup
	}

	removed := make(map[string]bool, len(files))
	for _, c := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !opts.DryRun {
			if err := os.Remove(filepath.Join(absRoot, filepath.FromSlash(c.Path))); err != nil {
				e.logger.Warn("removing file failed", "path", c.Path, "error", err)
				report.fail(c.Path, c.Size, err)
				continue
			}
		}
		removed[c.Path] = true
		report.Files = append(report.Files, FileResult{Path: c.Path, Size: c.Size, Status: status(opts.DryRun)})
		report.Summary.FilesRemoved++
		report.Summary.TotalSizeBytes += c.Size
		report.Breakdown[kindOrDefault(c.Kind)]++
	}

	for _, dir := range e.prunable(absRoot, files, dirs, removed, opts.BackupDir) {
		if !opts.DryRun {
			if err := os.Remove(filepath.Join(absRoot, filepath.FromSlash(dir))); err != nil {
				e.logger.Warn("removing directory failed", "path", dir, "error", err)
				report.Errors = append(report.Errors, Error{Path: dir, Message: err.Error()})
				report.Directories = append(report.Directories, DirectoryResult{Path: dir, Status: StatusFailed})
				continue
			}
		}
		report.Directories = append(report.Directories, DirectoryResult{Path: dir, Status: status(opts.DryRun)})
		report.Summary.DirectoriesRemoved++
		report.Breakdown[KindEmptyDirectory]++
	}

	report.Summary.Errors = len(report.Errors)
	return report, nil
}

func (r *Report) fail(p string, size int64, err error) {
	r.Files = append(r.Files, FileResult{Path: p, Size: size, Status: StatusFailed})
	r.Errors = append(r.Errors, Error{Path: p, Message: err.Error()})
}

func status(dryRun bool) Status {
	if dryRun {
		return StatusWouldRemove
	}
	return StatusRemoved
}

func kindOrDefault(kind string) string {
	if kind == "" {
		return KindUnused
	}
	return kind
}

// cleanRel normalizes a candidate path and rejects anything outside the root.
func cleanRel(p string) (string, error) {
	if p == "" {
		return "", errors.New("empty path")
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%s: absolute paths are not removed", p)
	}
	rel := path.Clean(filepath.ToSlash(p))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s: escapes the root", p)
	}
	return rel, nil
}

// backup copies every file under a timestamped snapshot directory and
// verifies each copy by content hash.
func (e *Executor) backup(root string, files []Candidate, backupDir string) (string, error) {
	if backupDir == "" {
		backupDir = ".sift/backups"
	}
	if !filepath.IsAbs(backupDir) {
		backupDir = filepath.Join(root, backupDir)
	}
	snapshot := filepath.Join(backupDir, e.now().UTC().Format("20060102-150405.000000000"))
	if err := os.MkdirAll(snapshot, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	for _, c := range files {
		src := filepath.Join(root, filepath.FromSlash(c.Path))
		dst := filepath.Join(snapshot, filepath.FromSlash(c.Path))
		if err := copyVerified(src, dst); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrBackupFailed, c.Path, err)
		}
	}
	e.logger.Debug("backup written", "path", snapshot, "files", len(files))
	return snapshot, nil
}

func copyVerified(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	original, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	copied, err := os.ReadFile(dst)
	if err != nil {
		return err
	}
	if redundancy.Hash(original) != redundancy.Hash(copied) {
		return errors.New("backup copy does not match original")
	}
	return nil
}

// prunable returns the directories that are empty once removed files are
// gone, deepest first. Candidates are the explicit empty directories plus
// every ancestor of a removed file or candidate directory. The backup
// directory and its ancestors are never pruned.
func (e *Executor) prunable(root string, files []Candidate, dirs []string, removed map[string]bool, backupDir string) []string {
	seen := make(map[string]bool)
	var queue []string
	addAncestors := func(p string) {
		for d := p; d != "." && d != "/" && d != ""; d = path.Dir(d) {
			if !seen[d] {
				seen[d] = true
				queue = append(queue, d)
			}
		}
	}
	for _, c := range files {
		if removed[c.Path] {
			addAncestors(path.Dir(c.Path))
		}
	}
	for _, d := range dirs {
		addAncestors(d)
	}

	protected := make(map[string]bool)
	if backupDir != "" && !filepath.IsAbs(backupDir) {
		for d := path.Clean(filepath.ToSlash(backupDir)); d != "." && d != "/"; d = path.Dir(d) {
			protected[d] = true
		}
	}

	sort.Slice(queue, func(i, j int) bool {
		di, dj := strings.Count(queue[i], "/"), strings.Count(queue[j], "/")
		if di != dj {
			return di > dj
		}
		return queue[i] < queue[j]
	})

	empty := make(map[string]bool)
	var out []string
	for _, dir := range queue {
		if protected[dir] {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(dir)))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				e.logger.Warn("reading directory failed", "path", dir, "error", err)
			}
			continue
		}
		isEmpty := true
		for _, entry := range entries {
			child := dir + "/" + entry.Name()
			if entry.IsDir() {
				if !empty[child] {
					isEmpty = false
					break
				}
				continue
			}
			if !removed[child] {
				isEmpty = false
				break
			}
		}
		if isEmpty {
			empty[dir] = true
			out = append(out, dir)
		}
	}
	return out
}
