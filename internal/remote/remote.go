// Package remote resolves repository references such as "owner/repo" or
// "https://host/group/project@ref" and clones them for analysis.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

// Parse detects if a path is a remote reference. It returns nil when the
// path exists on the filesystem or does not look like a repository.
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}
	if strings.HasPrefix(path, ".") || strings.HasPrefix(path, "/") {
		return nil, nil
	}

	// scp-like SSH URLs contain "@" before the host, so only split a ref
	// after the last slash
	ref := ""
	if idx := strings.LastIndex(path, "@"); idx > strings.LastIndex(path, "/") && idx > strings.Index(path, ":") {
		ref = path[idx+1:]
		path = path[:idx]
	}

	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "ssh://"):
		return &Source{URL: path, Ref: ref}, nil
	case strings.HasPrefix(path, "git@"):
		return &Source{URL: path, Ref: ref}, nil
	case isHostPath(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

// isHostPath matches "host.tld/owner/repo".
func isHostPath(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx <= 0 {
		return false
	}
	return strings.Contains(path[:slashIdx], ".") && strings.Count(path, "/") >= 2
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	if strings.Count(path, "/") != 1 {
		return false
	}
	// a dot before the slash would indicate a domain or a relative path
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone clones the source into a new temporary directory and records it in
// CloneDir. Branches and tags are fetched shallowly when shallow is set;
// any other ref is treated as a commit and requires full history.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "sift-clone-*")
	if err != nil {
		return err
	}
	s.CloneDir = dir

	depth := 0
	if shallow {
		depth = 1
	}

	if s.Ref == "" {
		_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:      s.URL,
			Depth:    depth,
			Progress: progress,
		})
		return s.cloneErr(err)
	}

	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(s.Ref),
		plumbing.NewTagReferenceName(s.Ref),
	} {
		_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           s.URL,
			ReferenceName: name,
			SingleBranch:  true,
			Depth:         depth,
			Progress:      progress,
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return s.cloneErr(ctx.Err())
		}
		if err := resetDir(dir); err != nil {
			return err
		}
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      s.URL,
		Progress: progress,
	})
	if err != nil {
		return s.cloneErr(err)
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(s.Ref))
	if err != nil {
		return s.cloneErr(fmt.Errorf("resolve ref %s: %w", s.Ref, err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return s.cloneErr(err)
	}
	return s.cloneErr(wt.Checkout(&git.CheckoutOptions{Hash: *hash}))
}

func (s *Source) cloneErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("clone %s: %w", s.URL, err)
}

// resetDir empties dir after a failed clone attempt.
func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		errs = append(errs, os.RemoveAll(filepath.Join(dir, e.Name())))
	}
	return errors.Join(errs...)
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() error {
	if s.CloneDir == "" {
		return nil
	}
	err := os.RemoveAll(s.CloneDir)
	s.CloneDir = ""
	return err
}
