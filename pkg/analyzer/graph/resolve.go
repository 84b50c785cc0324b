package graph

import (
	"errors"
	"path"
	"strings"
)

// ResolveExtensions are tried, in order, when a relative specifier does not
// name an existing file.
var ResolveExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".json"}

var (
	// ErrUnresolved means no candidate path matched a scanned file.
	ErrUnresolved = errors.New("unresolved import")
	// ErrEscapesRoot means the specifier points outside the analysis root.
	ErrEscapesRoot = errors.New("import escapes root")
)

// Resolution is the outcome of resolving one specifier.
type Resolution struct {
	Target string
	// Candidates lists every candidate path that matched when the exact path did not
	// exist. More than one candidate means the choice of Target is ambiguous.
	Candidates []string
	External   bool
}

// Ambiguous reports whether more than one candidate path matched.
func (r Resolution) Ambiguous() bool {
	return len(r.Candidates) > 1
}

// IsRelative reports whether a specifier is resolved against the importing file.
func IsRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// Resolve maps a specifier used in fromRel to a relative path under the
// root. Only relative specifiers are resolved; anything else is external.
// The exact path wins; otherwise ResolveExtensions are appended and then
// tried as <path>/index<ext>, and the first match is used.
func Resolve(fromRel, specifier string, exists func(string) bool) (Resolution, error) {
	if !IsRelative(specifier) {
		return Resolution{External: true}, nil
	}

	base := path.Clean(path.Join(path.Dir(fromRel), specifier))
	if base == ".." || strings.HasPrefix(base, "../") {
		return Resolution{}, ErrEscapesRoot
	}

	if base != "." && exists(base) {
		return Resolution{Target: base, Candidates: []string{base}}, nil
	}

	var candidates []string
	if base != "." {
		for _, ext := range ResolveExtensions {
			if p := base + ext; exists(p) {
				candidates = append(candidates, p)
			}
		}
	}
	for _, ext := range ResolveExtensions {
		if p := path.Join(base, "index"+ext); exists(p) {
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		return Resolution{}, ErrUnresolved
	}
	return Resolution{Target: candidates[0], Candidates: candidates}, nil
}
