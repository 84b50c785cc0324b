package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for sift.
type Config struct {
	// Scan settings
	Scan ScanConfig `koanf:"scan" toml:"scan"`

	// Entry point declarations
	Entry EntryConfig `koanf:"entry" toml:"entry"`

	// Thresholds for duplicate detection
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Removal executor settings
	Removal RemovalConfig `koanf:"removal" toml:"removal"`

	// Extracted facts cache
	Cache CacheConfig `koanf:"cache" toml:"cache"`
}

// ScanConfig controls which files the scanner returns.
type ScanConfig struct {
	Extensions             []string `koanf:"extensions" toml:"extensions"`
	IncludeTests           bool     `koanf:"include_tests" toml:"include_tests"`
	IncludeDependencyCache bool     `koanf:"include_dependency_cache" toml:"include_dependency_cache"`
	MaxFileSize            int64    `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
	Workers                int      `koanf:"workers" toml:"workers"`             // 0 = 2x NumCPU
}

// EntryConfig declares files that are never eligible for unused classification.
type EntryConfig struct {
	Points []string `koanf:"points" toml:"points"` // paths or glob patterns relative to the root
	Names  []string `koanf:"names" toml:"names"`   // conventional basenames without extension
	// Tests makes test files that call a test runner entry points, so code
	// reachable only from tests counts as used.
	Tests bool `koanf:"tests" toml:"tests"`
}

// ThresholdConfig defines duplicate detection thresholds.
type ThresholdConfig struct {
	MinBlockLines           int     `koanf:"min_block_lines" toml:"min_block_lines"`
	MaxFunctionLines        int     `koanf:"max_function_lines" toml:"max_function_lines"`
	MinSignatureTokens      int     `koanf:"min_signature_tokens" toml:"min_signature_tokens"`
	NearDuplicateSimilarity float64 `koanf:"near_duplicate_similarity" toml:"near_duplicate_similarity"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs" toml:"dirs"`         // path segments skipped during the walk
	Patterns  []string `koanf:"patterns" toml:"patterns"` // gitignore syntax
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting and persistence.
type OutputConfig struct {
	Format      string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color       bool   `koanf:"color" toml:"color"`
	Path        string `koanf:"path" toml:"path"`
	SummaryPath string `koanf:"summary_path" toml:"summary_path"`
}

// RemovalConfig controls the removal executor.
type RemovalConfig struct {
	BackupDir string `koanf:"backup_dir" toml:"backup_dir"`
}

// CacheConfig controls the on-disk facts cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`             // relative to the analyzed root
	TTL     int    `koanf:"ttl_hours" toml:"ttl_hours"` // 0 = never expire
}

// DependencyCacheDir is the directory skipped unless IncludeDependencyCache is set.
const DependencyCacheDir = "node_modules"

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions: []string{
				".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
				".json", ".md", ".yml", ".yaml",
			},
			IncludeTests:           true,
			IncludeDependencyCache: false,
			MaxFileSize:            0,
			Workers:                0,
		},
		Entry: EntryConfig{
			Names: []string{"index", "main", "app", "server", "start", "entry"},
		},
		Thresholds: ThresholdConfig{
			MinBlockLines:           5,
			MaxFunctionLines:        200,
			MinSignatureTokens:      3,
			NearDuplicateSimilarity: 0.8,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				DependencyCacheDir,
				".git",
				".sift",
				"dist",
				"build",
				"out",
				"coverage",
				".next",
				".nuxt",
				".cache",
			},
			Patterns: []string{
				"*.min.js",
				"*.bundle.js",
				"package-lock.json",
				"sift-*.json",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format:      "text",
			Color:       true,
			Path:        "sift-report.json",
			SummaryPath: "sift-summary.json",
		},
		Removal: RemovalConfig{
			BackupDir: ".sift/backups",
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".sift/cache",
			TTL:     24 * 7,
		},
	}
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// ConfigNames are the file names searched by Find, in priority order.
var ConfigNames = []string{
	"sift.toml",
	"sift.yaml",
	"sift.yml",
	"sift.json",
	".sift.toml",
	".sift.yaml",
	".sift.yml",
	".sift.json",
}

// Find returns the first config file found in dir or dir/.sift, or "".
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".sift")} {
		for _, name := range ConfigNames {
			path := filepath.Join(d, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the config at path, or searches the current directory
// when path is empty. Falls back to defaults when nothing is found.
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		path = Find(".")
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Thresholds.MinBlockLines < 1 {
		errs = append(errs, fmt.Errorf("thresholds.min_block_lines must be >= 1, got %d", c.Thresholds.MinBlockLines))
	}
	if c.Thresholds.MaxFunctionLines < 1 {
		errs = append(errs, fmt.Errorf("thresholds.max_function_lines must be >= 1, got %d", c.Thresholds.MaxFunctionLines))
	}
	if c.Thresholds.MinSignatureTokens < 1 {
		errs = append(errs, fmt.Errorf("thresholds.min_signature_tokens must be >= 1, got %d", c.Thresholds.MinSignatureTokens))
	}
	if s := c.Thresholds.NearDuplicateSimilarity; s <= 0 || s > 1 {
		errs = append(errs, fmt.Errorf("thresholds.near_duplicate_similarity must be in (0, 1], got %g", s))
	}
	if len(c.Scan.Extensions) == 0 {
		errs = append(errs, errors.New("scan.extensions must not be empty"))
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("scan.extensions entry %q must start with a dot", ext))
		}
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_hours must be >= 0, got %d", c.Cache.TTL))
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir must be set when the cache is enabled"))
	}
	if c.Scan.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("scan.max_file_size must be >= 0, got %d", c.Scan.MaxFileSize))
	}
	return errors.Join(errs...)
}

// ReportPaths returns the configured report and summary files that fall
// under root, as slash-separated relative paths. A relative setting is
// resolved both against root and against the working directory, since
// either may be where the report was written.
func (c *Config) ReportPaths(root string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	var paths []string
	add := func(abs string) {
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return
		}
		rel = filepath.ToSlash(rel)
		if _, ok := seen[rel]; !ok {
			seen[rel] = struct{}{}
			paths = append(paths, rel)
		}
	}
	for _, p := range []string{c.Output.Path, c.Output.SummaryPath} {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			add(filepath.Clean(p))
			continue
		}
		add(filepath.Join(absRoot, p))
		if abs, err := filepath.Abs(p); err == nil {
			add(abs)
		}
	}
	return paths
}

// CacheDir returns the facts cache directory, resolving a relative
// cache.dir against root.
func (c *Config) CacheDir(root string) string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(root, c.Cache.Dir)
}

// IgnoredDirs returns the directory segments the walk should skip, honouring
// IncludeDependencyCache.
func (c *Config) IgnoredDirs() []string {
	dirs := make([]string, 0, len(c.Exclude.Dirs))
	for _, d := range c.Exclude.Dirs {
		if c.Scan.IncludeDependencyCache && d == DependencyCacheDir {
			continue
		}
		dirs = append(dirs, d)
	}
	return dirs
}

// AllowsExtension reports whether ext is on the scan allow-list.
func (c *Config) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Scan.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
