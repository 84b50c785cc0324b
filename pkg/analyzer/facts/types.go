package facts

// ImportKind distinguishes statically declared imports from runtime loads.
type ImportKind string

const (
	KindStatic  ImportKind = "static"
	KindDynamic ImportKind = "dynamic"
)

// Import is a single module reference found in a file.
type Import struct {
	Specifier string     `json:"specifier" toon:"specifier"`
	Line      int        `json:"line" toon:"line"`
	Kind      ImportKind `json:"kind" toon:"kind"`
	Names     []string   `json:"names,omitempty" toon:"names,omitempty"`
	// Computed is set when the argument is not a plain string literal.
	// Specifier then holds the literal prefix, or the raw argument text.
	Computed bool `json:"computed,omitempty" toon:"computed,omitempty"`
	ReExport bool `json:"reExport,omitempty" toon:"reExport,omitempty"`
}

// ExportKind classifies how a symbol is exported.
type ExportKind string

const (
	ExportDefault  ExportKind = "default"
	ExportNamed    ExportKind = "named"
	ExportReExport ExportKind = "reexport"
	ExportCommonJS ExportKind = "commonjs"
)

// Export is a single exported symbol.
type Export struct {
	Name string     `json:"name" toon:"name"`
	Line int        `json:"line" toon:"line"`
	Kind ExportKind `json:"kind" toon:"kind"`
}

// FileFacts holds everything extracted from one source file.
type FileFacts struct {
	RelPath      string   `json:"relPath" toon:"relPath"`
	Ext          string   `json:"ext" toon:"ext"`
	Imports      []Import `json:"imports,omitempty" toon:"imports,omitempty"`
	Exports      []Export `json:"exports,omitempty" toon:"exports,omitempty"`
	Empty        bool     `json:"empty" toon:"empty"`
	CommentOnly  bool     `json:"commentOnly" toon:"commentOnly"`
	Lines        int      `json:"lines" toon:"lines"`
	HasTestCalls bool     `json:"hasTestCalls" toon:"hasTestCalls"`
	Errors       []string `json:"errors,omitempty" toon:"errors,omitempty"`
}

// IsEmptyLike reports whether the file has no executable content.
func (f *FileFacts) IsEmptyLike() bool {
	return f.Empty || f.CommentOnly
}
