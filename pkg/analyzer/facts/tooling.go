package facts

import (
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ToolingConfigPatterns match basenames of files that tooling loads by
// convention. They are treated as entry points.
var ToolingConfigPatterns = []string{
	"*.config.{js,ts,mjs,cjs}",
	".eslintrc*",
	".babelrc*",
	".prettierrc*",
	"jest.setup.*",
	"gulpfile.*",
	"{G,g}runtfile.*",
	"webpack.*.js",
}

// BuildToolFiles match basenames of configuration files searched when
// deciding whether a candidate may be referenced outside the import graph.
var BuildToolFiles = []string{
	"package.json",
	"tsconfig*.json",
	"webpack.config.js",
	"vite.config.*",
	"rollup.config.*",
	"babel.config.*",
	"jest.config.*",
	".eslintrc*",
	"next.config.*",
	"nuxt.config.*",
	"vue.config.js",
	"Dockerfile",
	"docker-compose.yml",
	"docker-compose.yaml",
	"Procfile",
}

// RootBuildFiles are extension-less or non-source build files read directly
// from the analysis root, since the scanner's allow-list never returns them.
var RootBuildFiles = []string{"Dockerfile", "Procfile", "docker-compose.yml", "docker-compose.yaml"}

var (
	toolingGlobs = compileGlobs(ToolingConfigPatterns)
	buildGlobs   = compileGlobs(BuildToolFiles)
)

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		globs = append(globs, glob.MustCompile(p))
	}
	return globs
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// IsToolingConfig reports whether rel names a conventionally loaded
// tooling configuration file.
func IsToolingConfig(rel string) bool {
	return matchAny(toolingGlobs, path.Base(rel))
}

// IsConfigFile reports whether rel is a configuration file whose text is
// searched for references to removal candidates. This covers build tool
// files, tooling configs and any JSON or YAML document.
func IsConfigFile(rel string) bool {
	base := path.Base(rel)
	if matchAny(buildGlobs, base) || matchAny(toolingGlobs, base) {
		return true
	}
	switch strings.ToLower(path.Ext(base)) {
	case ".json", ".yml", ".yaml":
		return base != "package-lock.json"
	}
	return false
}

// IsManifest reports whether rel is a package manifest.
func IsManifest(rel string) bool {
	return path.Base(rel) == "package.json"
}
