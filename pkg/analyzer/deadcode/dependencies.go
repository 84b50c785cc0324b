package deadcode

import (
	"sort"
	"strings"

	"github.com/panbanda/sift/pkg/analyzer/facts"
	"github.com/panbanda/sift/pkg/analyzer/graph"
)

// UnusedDependency is a runtime dependency that no file imports and no
// script or configuration file mentions.
type UnusedDependency struct {
	Name     string `json:"name" toon:"name"`
	Version  string `json:"version" toon:"version"`
	Manifest string `json:"manifest" toon:"manifest"`
	Section  string `json:"section" toon:"section"`
}

// PackageName returns the package part of a bare specifier:
// "@scope/pkg/sub" gives "@scope/pkg" and "lodash/fp" gives "lodash".
// Builtins with the "node:" prefix yield "".
func PackageName(specifier string) string {
	if specifier == "" || strings.HasPrefix(specifier, "node:") || graph.IsRelative(specifier) || strings.HasPrefix(specifier, "/") {
		return ""
	}
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// UnusedDependencies lists declared runtime dependencies never imported.
// Other sections are not checked. A name mentioned in any manifest script or configuration text
// counts as used.
func UnusedDependencies(manifests []*facts.Manifest, external []graph.Edge, configTexts map[string]string) []UnusedDependency {
	imported := make(map[string]struct{}, len(external))
	for _, e := range external {
		if name := PackageName(e.Specifier); name != "" {
			imported[name] = struct{}{}
		}
	}

	mentioned := func(name string, m *facts.Manifest) bool {
		for _, script := range m.Scripts {
			if strings.Contains(script, name) {
				return true
			}
		}
		for p, text := range configTexts {
			if facts.IsManifest(p) {
				continue
			}
			if strings.Contains(text, name) {
				return true
			}
		}
		return false
	}

	var unused []UnusedDependency
	for _, m := range manifests {
		for _, dep := range m.AllDependencies() {
			// dev, peer and optional packages are often used by tooling or the host
			if dep.Section != facts.SectionRuntime {
				continue
			}
			if _, ok := imported[dep.Name]; ok {
				continue
			}
			if mentioned(dep.Name, m) {
				continue
			}
			unused = append(unused, UnusedDependency{
				Name:     dep.Name,
				Version:  dep.Version,
				Manifest: m.Path,
				Section:  dep.Section,
			})
		}
	}
	sort.SliceStable(unused, func(i, j int) bool {
		if unused[i].Manifest != unused[j].Manifest {
			return unused[i].Manifest < unused[j].Manifest
		}
		return unused[i].Name < unused[j].Name
	})
	return unused
}
