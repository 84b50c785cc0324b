package vcs

import (
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

func TestInspect_NotRepository(t *testing.T) {
	st, err := Inspect(t.TempDir())
	require.NoError(t, err)
	assert.False(t, st.Repository)
	assert.False(t, st.Dirty)
	assert.NoError(t, RequireClean(t.TempDir()))
}

func TestInspect_EmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	st, err := Inspect(dir)
	require.NoError(t, err)
	assert.True(t, st.Repository)
	assert.Empty(t, st.Ref)
	assert.False(t, st.Dirty)
}

func TestInspect_Clean(t *testing.T) {
	dir, _ := initTestRepoWithCommit(t)

	st, err := Inspect(dir)
	require.NoError(t, err)
	assert.True(t, st.Repository)
	assert.Equal(t, "master", st.Ref)
	assert.False(t, st.Dirty)
	assert.Empty(t, st.Changed)
}

func TestInspect_UntrackedIsClean(t *testing.T) {
	dir, _ := initTestRepoWithCommit(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.js"), []byte("x"), 0o644))

	st, err := Inspect(dir)
	require.NoError(t, err)
	assert.False(t, st.Dirty)
}

func TestInspect_Modified(t *testing.T) {
	dir, _ := initTestRepoWithCommit(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.js"), []byte("changed"), 0o644))

	st, err := Inspect(filepath.Join(dir, "src"))
	require.NoError(t, err)
	assert.True(t, st.Dirty)
	assert.Equal(t, []string{"src/a.js"}, st.Changed)

	err = RequireClean(dir)
	require.ErrorIs(t, err, ErrDirtyWorkingDir)
	assert.Contains(t, err.Error(), "src/a.js")
}

func TestInspect_DetachedHead(t *testing.T) {
	dir, hash := initTestRepoWithCommit(t)
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.HEAD, hash)))

	st, err := Inspect(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), st.Ref)
}

func initTestRepoWithCommit(t *testing.T) (string, plumbing.Hash) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.js"), []byte("module.exports = 1\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("src/a.js")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir, hash
}
