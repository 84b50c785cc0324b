package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/sift/pkg/config"
	"github.com/panbanda/sift/pkg/source"
)

// Warning records a subtree or file that could not be read during the walk.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Scanner finds candidate files under a root directory.
type Scanner struct {
	config      *config.Config
	logger      *slog.Logger
	ignoredDirs []string
	matchers    []gitignore.Matcher
	reports     map[string]struct{}
	warnings    []Warning
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config, logger *slog.Logger) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		config:      cfg,
		logger:      logger,
		ignoredDirs: cfg.IgnoredDirs(),
	}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns loads exclusion patterns from both config and .gitignore files.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	s.reports = make(map[string]struct{})
	for _, rel := range s.config.ReportPaths(root) {
		s.reports[rel] = struct{}{}
	}
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	// .gitignore files are only honoured when the scan root is the git root,
	// otherwise their domains would not line up with our relative paths.
	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" && filepath.Clean(gitRoot) == filepath.Clean(root) {
			if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			} else {
				s.logger.Warn("reading .gitignore patterns failed", "root", gitRoot, "error", err)
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if a slash-separated relative path matches any exclusion pattern.
func (s *Scanner) isExcluded(rel string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// SkipDir reports whether the directory at rel is pruned from the walk,
// either because one of its segments is an ignored directory or because it
// matches an exclude pattern.
func (s *Scanner) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	padded := "/" + rel + "/"
	for _, dir := range s.ignoredDirs {
		if strings.Contains(padded, "/"+dir+"/") {
			return true
		}
	}
	return s.isExcluded(rel, true)
}

// Include reports whether the file at rel is returned by the scan.
func (s *Scanner) Include(rel string) bool {
	if !s.config.AllowsExtension(filepath.Ext(rel)) {
		return false
	}
	if !s.config.Scan.IncludeTests && source.IsTestPath(rel) {
		return false
	}
	if _, ok := s.reports[rel]; ok {
		return false
	}
	return !s.isExcluded(rel, false)
}

// Warnings returns the problems recorded by the most recent Scan.
func (s *Scanner) Warnings() []Warning {
	return s.warnings
}

func (s *Scanner) warn(path string, err error) {
	s.warnings = append(s.warnings, Warning{Path: path, Message: err.Error()})
	s.logger.Warn("skipping unreadable path", "path", path, "error", err)
}

// Prepare loads exclusion patterns for root so SkipDir and Include can be
// used without a full Scan.
func (s *Scanner) Prepare(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", root, err)
	}
	s.loadExcludePatterns(absRoot)
	return nil
}

// Scan recursively walks root and returns one record per matching file,
// sorted by relative path. Unreadable subtrees are logged and skipped; only
// a missing or unreadable root is an error.
func (s *Scanner) Scan(ctx context.Context, root string) ([]source.FileRecord, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	s.warnings = nil
	s.loadExcludePatterns(absRoot)

	records := make([]source.FileRecord, 0, 256)
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == absRoot {
				return err
			}
			s.warn(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			s.warn(path, relErr)
			return nil
		}
		rel = filepath.ToSlash(rel)

		// Security: symlinks must not escape the root
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			target, err := os.Stat(resolved)
			if err != nil || target.IsDir() {
				// linked directories are not followed by WalkDir
				return nil
			}
		}

		if d.IsDir() {
			if s.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.Include(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.warn(path, err)
			return nil
		}
		if max := s.config.Scan.MaxFileSize; max > 0 && info.Size() > max {
			s.logger.Debug("skipping oversized file", "path", rel, "size", info.Size())
			return nil
		}

		records = append(records, source.FileRecord{
			Path:    path,
			RelPath: rel,
			Ext:     strings.ToLower(filepath.Ext(rel)),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Empty:   info.Size() == 0,
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(records, func(i, j int) bool { return records[i].RelPath < records[j].RelPath })
	return records, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// FilterJSLike returns the records whose extension is JavaScript-like.
func FilterJSLike(records []source.FileRecord) []source.FileRecord {
	var filtered []source.FileRecord
	for _, r := range records {
		if source.IsJSLike(r.Ext) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
