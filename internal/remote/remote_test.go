package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LocalPath(t *testing.T) {
	dir := t.TempDir()

	src, err := Parse(dir)
	require.NoError(t, err)
	assert.Nil(t, src)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantURL string
		wantRef string
	}{
		{"shorthand", "facebook/react", "https://github.com/facebook/react", ""},
		{"shorthand with tag", "facebook/react@v18.2.0", "https://github.com/facebook/react", "v18.2.0"},
		{"shorthand with branch", "owner/repo@feature-branch", "https://github.com/owner/repo", "feature-branch"},
		{"host without scheme", "github.com/vercel/next.js", "https://github.com/vercel/next.js", ""},
		{"gitlab host with ref", "gitlab.com/group/project@main", "https://gitlab.com/group/project", "main"},
		{"https url", "https://github.com/owner/repo.git", "https://github.com/owner/repo.git", ""},
		{"https url with ref", "https://github.com/owner/repo@abc123", "https://github.com/owner/repo", "abc123"},
		{"scp ssh", "git@github.com:owner/repo.git", "git@github.com:owner/repo.git", ""},
		{"scp ssh with ref", "git@github.com:owner/repo.git@dev", "git@github.com:owner/repo.git", "dev"},
		{"ssh url", "ssh://git@host.example/owner/repo", "ssh://git@host.example/owner/repo", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Parse(tt.input)
			require.NoError(t, err)
			require.NotNil(t, src)
			assert.Equal(t, tt.wantURL, src.URL)
			assert.Equal(t, tt.wantRef, src.Ref)
		})
	}
}

func TestParse_NotRemote(t *testing.T) {
	for _, input := range []string{
		"./missing/dir",
		"../sibling",
		"just-a-name",
		"a/b/c",
		"/abs/missing/path",
	} {
		t.Run(input, func(t *testing.T) {
			src, err := Parse(input)
			require.NoError(t, err)
			assert.Nil(t, src)
		})
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	cloneDir := filepath.Join(dir, "clone")
	require.NoError(t, os.MkdirAll(cloneDir, 0o755))

	src := &Source{URL: "https://example.com/r", CloneDir: cloneDir}
	require.NoError(t, src.Cleanup())
	assert.NoDirExists(t, cloneDir)
	assert.Empty(t, src.CloneDir)

	// no-op once cleaned
	assert.NoError(t, src.Cleanup())
}

func TestClone_LocalRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping clone test in short mode")
	}

	origin := initOrigin(t)

	tests := []struct {
		name string
		ref  string
	}{
		{"default branch", ""},
		{"branch", "feature"},
		{"tag", "v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &Source{URL: origin, Ref: tt.ref}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			require.NoError(t, src.Clone(ctx, nil, false))
			t.Cleanup(func() { _ = src.Cleanup() })

			assert.DirExists(t, src.CloneDir)
			assert.FileExists(t, filepath.Join(src.CloneDir, "index.js"))
		})
	}
}

func TestClone_UnknownRef(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping clone test in short mode")
	}

	src := &Source{URL: initOrigin(t), Ref: "does-not-exist"}
	err := src.Clone(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clone")
	_ = src.Cleanup()
}

// initOrigin creates a repository with one commit on master, a "feature"
// branch and a "v1" tag.
func initOrigin(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("require('./lib')\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("index.js")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("feature"), hash)))
	_, err = repo.CreateTag("v1", hash, nil)
	require.NoError(t, err)
	return dir
}
