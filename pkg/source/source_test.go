package source

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemSource(t *testing.T) {
	src := NewFilesystem()

	content, err := src.Read("../../go.mod")
	require.NoError(t, err)
	assert.Contains(t, string(content), "module github.com/panbanda/sift")

	_, err = src.Read("nonexistent.txt")
	assert.Error(t, err)
}

func TestMapSource(t *testing.T) {
	src := NewMap(map[string][]byte{"a.js": []byte("x")})

	content, err := src.Read("a.js")
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))

	_, err = src.Read("b.js")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIsJSLike(t *testing.T) {
	for _, ext := range []string{".js", ".JSX", ".ts", ".tsx", ".mjs", ".cjs"} {
		assert.True(t, IsJSLike(ext), ext)
	}
	for _, ext := range []string{".json", ".md", "", ".go"} {
		assert.False(t, IsJSLike(ext), ext)
	}
}

func TestIsTestPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"src/__tests__/a.js", true},
		{"test/helpers.js", true},
		{"packages/api/tests/user.js", true},
		{"src/user.test.ts", true},
		{"src/user.spec.js", true},
		{"src/testing.js", false},
		{"src/latest.js", false},
		{"contest/index.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTestPath(tt.path))
		})
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "helper", Stem("src/utils/helper.js"))
	assert.Equal(t, "webpack.config", Stem("webpack.config.js"))
	assert.Equal(t, "Makefile", Stem("Makefile"))
}
