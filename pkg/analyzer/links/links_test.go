package links

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/panbanda/sift/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
		ok     bool
	}{
		{"./guide.md", "./guide.md", true},
		{"../a/b.md#section", "../a/b.md", true},
		{"img/logo%20big.png?raw=1", "img/logo big.png", true},
		{"#anchor", "", false},
		{"https://example.com/x.md", "", false},
		{"mailto:dev@example.com", "", false},
		{"/absolute/path.md", "", false},
		{"?q=1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, ok := localTarget(tt.target)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck(t *testing.T) {
	root := t.TempDir()
	testutil.CreateFileTree(t, root, map[string]string{
		"docs/guide.md":   "guide",
		"docs/img/a.png":  "png",
		"README.md":       "readme",
		"src/index.js":    "export default 1",
		"docs/ref/api.md": "api",
	})

	readme := "# Project\n" +
		"See [guide](docs/guide.md) and [api](docs/ref/api.md#usage).\n" +
		"Broken [old](docs/old.md) and ![logo](docs/img/missing.png)\n" +
		"[site](https://example.com) [top](#project)\n" +
		"```\n[ignored](nope.md)\n```\n" +
		"[ref]: ./src/gone.js\n"
	guide := "Back to [readme](../README.md), [src](../src/index.js), [outside](../../etc/passwd)\n"

	broken, err := New(root).Check(context.Background(), []Document{
		{RelPath: "README.md", Content: []byte(readme)},
		{RelPath: "docs/guide.md", Content: []byte(guide)},
	})
	require.NoError(t, err)

	assert.Equal(t, []BrokenLink{
		{File: "README.md", Line: 3, Target: "docs/old.md", Reason: ReasonMissing},
		{File: "README.md", Line: 3, Target: "docs/img/missing.png", Reason: ReasonMissing},
		{File: "README.md", Line: 8, Target: "./src/gone.js", Reason: ReasonMissing},
		{File: "docs/guide.md", Line: 1, Target: "../../etc/passwd", Reason: ReasonEscapes},
	}, broken)
}

func TestCheckWithExists(t *testing.T) {
	known := map[string]bool{"a.md": true}
	c := New("", WithExists(func(rel string) bool { return known[rel] }))

	broken, err := c.Check(context.Background(), []Document{
		{RelPath: "x/index.md", Content: []byte("[a](../a.md) [b](../b.md)")},
	})
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "../b.md", broken[0].Target)
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(t.TempDir()).Check(ctx, []Document{{RelPath: "a.md"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsMarkdown(t *testing.T) {
	assert.True(t, IsMarkdown("README.md"))
	assert.True(t, IsMarkdown("docs/x.MARKDOWN"))
	assert.False(t, IsMarkdown(filepath.ToSlash("a/b.js")))
}
