package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 5, cfg.Thresholds.MinBlockLines)
	assert.Equal(t, 200, cfg.Thresholds.MaxFunctionLines)
	assert.Equal(t, 0.8, cfg.Thresholds.NearDuplicateSimilarity)
	assert.True(t, cfg.Scan.IncludeTests)
	assert.False(t, cfg.Scan.IncludeDependencyCache)
	assert.True(t, cfg.Exclude.Gitignore)
	assert.Contains(t, cfg.Exclude.Dirs, "node_modules")
	assert.Contains(t, cfg.Entry.Names, "index")
	assert.False(t, cfg.Entry.Tests)
	assert.Contains(t, cfg.Exclude.Patterns, "sift-*.json")
	assert.Equal(t, "text", cfg.Output.Format)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, ".sift/cache", cfg.Cache.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sift.toml")

	content := `
[scan]
include_tests = false
extensions = [".js", ".ts"]

[entry]
points = ["scripts/*.js"]

[thresholds]
min_block_lines = 8

[output]
format = "json"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.False(t, cfg.Scan.IncludeTests)
	assert.Equal(t, []string{".js", ".ts"}, cfg.Scan.Extensions)
	assert.Equal(t, []string{"scripts/*.js"}, cfg.Entry.Points)
	assert.Equal(t, 8, cfg.Thresholds.MinBlockLines)
	assert.Equal(t, "json", cfg.Output.Format)
	// untouched sections keep their defaults
	assert.Equal(t, 200, cfg.Thresholds.MaxFunctionLines)
	assert.True(t, cfg.Exclude.Gitignore)
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sift.yaml")

	content := `
scan:
  include_dependency_cache: true
exclude:
  dirs: ["vendor"]
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.True(t, cfg.Scan.IncludeDependencyCache)
	assert.Equal(t, []string{"vendor"}, cfg.Exclude.Dirs)
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sift.json")

	content := `{"output": {"format": "markdown", "color": false}}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
}

func TestLoadInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(tmpDir, "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("bad syntax", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[scan\ninclude_tests = "), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad threshold", func(t *testing.T) {
		path := filepath.Join(tmpDir, "threshold.toml")
		require.NoError(t, os.WriteFile(path, []byte("[thresholds]\nnear_duplicate_similarity = 1.5\n"), 0644))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "near_duplicate_similarity")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero block lines", func(c *Config) { c.Thresholds.MinBlockLines = 0 }, "min_block_lines"},
		{"zero function lines", func(c *Config) { c.Thresholds.MaxFunctionLines = 0 }, "max_function_lines"},
		{"empty extensions", func(c *Config) { c.Scan.Extensions = nil }, "scan.extensions"},
		{"extension without dot", func(c *Config) { c.Scan.Extensions = []string{"js"} }, "must start with a dot"},
		{"negative size", func(c *Config) { c.Scan.MaxFileSize = -1 }, "max_file_size"},
		{"negative cache ttl", func(c *Config) { c.Cache.TTL = -1 }, "ttl_hours"},
		{"enabled cache without dir", func(c *Config) { c.Cache.Enabled = true; c.Cache.Dir = "" }, "cache.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFind(t *testing.T) {
	tmpDir := t.TempDir()
	assert.Empty(t, Find(tmpDir))

	nested := filepath.Join(tmpDir, ".sift")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "sift.yaml"), []byte("{}"), 0644))
	assert.Equal(t, filepath.Join(nested, "sift.yaml"), Find(tmpDir))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "sift.toml"), []byte(""), 0644))
	assert.Equal(t, filepath.Join(tmpDir, "sift.toml"), Find(tmpDir))
}

func TestIgnoredDirs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Contains(t, cfg.IgnoredDirs(), DependencyCacheDir)

	cfg.Scan.IncludeDependencyCache = true
	assert.NotContains(t, cfg.IgnoredDirs(), DependencyCacheDir)
	assert.Contains(t, cfg.IgnoredDirs(), ".git")
}

func TestAllowsExtension(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.AllowsExtension(".js"))
	assert.True(t, cfg.AllowsExtension(".TSX"))
	assert.False(t, cfg.AllowsExtension(".go"))
	assert.False(t, cfg.AllowsExtension(""))
}

func TestReportPaths(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Output.Path = filepath.Join(root, "reports", "full.json")
	cfg.Output.SummaryPath = "out/summary.json"
	assert.Contains(t, cfg.ReportPaths(root), "reports/full.json")
	assert.Contains(t, cfg.ReportPaths(root), "out/summary.json")

	cfg.Output.Path = filepath.Join(t.TempDir(), "elsewhere.json")
	cfg.Output.SummaryPath = ""
	assert.Empty(t, cfg.ReportPaths(root))
}
