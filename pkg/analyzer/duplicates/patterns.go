package duplicates

import (
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/sift/pkg/analyzer/facts"
)

// configTag pairs a tag with the line pattern that detects it.
type configTag struct {
	tag     string
	pattern *regexp.Regexp
}

// configTags are checked against every code line, in this order.
var configTags = []configTag{
	{"cors", regexp.MustCompile(`\bcors\s*\(|Access-Control-Allow-`)},
	{"middleware", regexp.MustCompile(`\b(?:app|router|server)\.use\s*\(`)},
	{"route", regexp.MustCompile("\\.(?:get|post|put|patch|delete|all|route)\\s*\\(\\s*['\"`]/")},
	{"rate-limit", regexp.MustCompile(`(?i)\brate[-_]?limit|\bslowDown\s*\(`)},
	{"database-connection", regexp.MustCompile(`\b(?:mongoose\.connect|mongoose\.createConnection|createConnection|createPool|MongoClient\.connect|knex)\s*\(|\bnew\s+(?:Pool|Client|Sequelize|PrismaClient|MongoClient|Redis)\s*\(`)},
	{"framework-instance", regexp.MustCompile(`=\s*(?:express|fastify|polka|connect)\s*\(|\bnew\s+(?:Koa|Hono|Fastify)\s*\(`)},
}

// ConfigTags returns the detectable configuration tags in order.
func ConfigTags() []string {
	tags := make([]string, len(configTags))
	for i, t := range configTags {
		tags[i] = t.tag
	}
	return tags
}

// tagLines records every tagged line in one file.
func tagLines(file string, lines []string, into map[string][]PatternOccurrence) {
	inBlock := false
	for i, line := range lines {
		var code string
		code, inBlock = facts.StripComments(line, inBlock)
		if strings.TrimSpace(code) == "" {
			continue
		}
		for _, t := range configTags {
			if t.pattern.MatchString(code) {
				into[t.tag] = append(into[t.tag], PatternOccurrence{
					File: file,
					Line: i + 1,
					Text: strings.TrimSpace(code),
				})
			}
		}
	}
}

// configPatterns keeps the tags seen in at least two files.
func configPatterns(occurrences map[string][]PatternOccurrence) []ConfigPattern {
	var patterns []ConfigPattern
	for _, tag := range ConfigTags() {
		occ := occurrences[tag]
		files := make(map[string]struct{})
		for _, o := range occ {
			files[o.File] = struct{}{}
		}
		if len(files) < 2 {
			continue
		}
		p := ConfigPattern{Tag: tag, Occurrences: occ}
		for f := range files {
			p.Files = append(p.Files, f)
		}
		sort.Strings(p.Files)
		patterns = append(patterns, p)
	}
	return patterns
}

// dependencyDuplicates reports package names declared by at least two
// manifests. Versions are the sorted distinct version strings; a conflict
// exists when there is more than one.
func dependencyDuplicates(manifests []*facts.Manifest) []DependencyDuplicate {
	type decl struct {
		versions  map[string]struct{}
		manifests map[string]struct{}
	}
	byName := make(map[string]*decl)
	for _, m := range manifests {
		for _, dep := range m.AllDependencies() {
			d := byName[dep.Name]
			if d == nil {
				d = &decl{versions: make(map[string]struct{}), manifests: make(map[string]struct{})}
				byName[dep.Name] = d
			}
			d.versions[dep.Version] = struct{}{}
			d.manifests[m.Path] = struct{}{}
		}
	}

	var dups []DependencyDuplicate
	for name, d := range byName {
		if len(d.manifests) < 2 {
			continue
		}
		dup := DependencyDuplicate{Name: name}
		for v := range d.versions {
			dup.Versions = append(dup.Versions, v)
		}
		for m := range d.manifests {
			dup.Manifests = append(dup.Manifests, m)
		}
		sort.Strings(dup.Versions)
		sort.Strings(dup.Manifests)
		dup.VersionConflict = len(dup.Versions) > 1
		dups = append(dups, dup)
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Name < dups[j].Name })
	return dups
}
