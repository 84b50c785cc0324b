// Package vcs reports the git state of a working tree so destructive
// operations can refuse to run over uncommitted work.
package vcs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrDirtyWorkingDir is returned when the working directory has uncommitted changes.
var ErrDirtyWorkingDir = errors.New("working directory has uncommitted changes")

// Status describes the repository containing a path.
type Status struct {
	// Repository is false when the path is not inside a git repository.
	Repository bool
	Root       string
	// Ref is the branch name, or the commit SHA for a detached HEAD. It is
	// empty before the first commit.
	Ref     string
	Dirty   bool
	Changed []string
}

// Inspect opens the repository containing path, searching parent
// directories. Untracked files are not considered dirty.
func Inspect(path string) (*Status, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return &Status{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	st := &Status{Repository: true, Root: wt.Filesystem.Root()}

	head, err := repo.Head()
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	case err != nil:
		return nil, err
	case head.Name().IsBranch():
		st.Ref = head.Name().Short()
	default:
		st.Ref = head.Hash().String()
	}

	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	for file, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			st.Changed = append(st.Changed, file)
		}
	}
	sort.Strings(st.Changed)
	st.Dirty = len(st.Changed) > 0
	return st, nil
}

// RequireClean returns ErrDirtyWorkingDir, naming the first changed files,
// when path is inside a repository with uncommitted changes.
func RequireClean(path string) error {
	st, err := Inspect(path)
	if err != nil {
		return err
	}
	if !st.Dirty {
		return nil
	}
	shown := st.Changed
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return fmt.Errorf("%w (%d changed, e.g. %v)", ErrDirtyWorkingDir, len(st.Changed), shown)
}
