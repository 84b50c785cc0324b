package graph

import "github.com/panbanda/sift/pkg/analyzer/facts"

// Edge is one import from Source to Target. Target is empty for external
// (package) specifiers, which never enter the graph.
type Edge struct {
	Source    string           `json:"source" toon:"source"`
	Target    string           `json:"target,omitempty" toon:"target,omitempty"`
	Specifier string           `json:"specifier" toon:"specifier"`
	Line      int              `json:"line" toon:"line"`
	Kind      facts.ImportKind `json:"kind" toon:"kind"`
}

// IssueKind classifies why a specifier did not become an edge, or became
// one with caveats.
type IssueKind string

const (
	IssueUnresolved IssueKind = "unresolved"
	IssueEscapes    IssueKind = "escapes-root"
	IssueComputed   IssueKind = "computed"
	IssueAmbiguous  IssueKind = "ambiguous"
)

// Issue records a resolution problem for one import.
type Issue struct {
	Kind       IssueKind `json:"kind" toon:"kind"`
	Source     string    `json:"source" toon:"source"`
	Specifier  string    `json:"specifier" toon:"specifier"`
	Line       int       `json:"line" toon:"line"`
	Candidates []string  `json:"candidates,omitempty" toon:"candidates,omitempty"`
}

// Relationship summarises the direct neighbours of one file.
type Relationship struct {
	Imports    []string `json:"imports" toon:"imports"`
	ImportedBy []string `json:"importedBy" toon:"importedBy"`
	Rank       float64  `json:"rank" toon:"rank"`
}
