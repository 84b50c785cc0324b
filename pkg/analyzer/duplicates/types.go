package duplicates

import (
	"strings"

	"github.com/panbanda/sift/pkg/analyzer/facts"
)

// CodeBlock is one window of consecutive code lines.
type CodeBlock struct {
	File      string `json:"file" toon:"file"`
	StartLine int    `json:"startLine" toon:"startLine"`
	EndLine   int    `json:"endLine" toon:"endLine"`
	Hash      uint64 `json:"hash" toon:"hash"`
}

// Lines returns the number of lines the block spans.
func (b CodeBlock) Lines() int {
	return b.EndLine - b.StartLine + 1
}

// Instance is a single occurrence within a duplicate group.
type Instance struct {
	File      string `json:"file" toon:"file"`
	StartLine int    `json:"startLine" toon:"startLine"`
	EndLine   int    `json:"endLine" toon:"endLine"`
}

// ExactGroup is a set of regions whose normalized text is identical.
type ExactGroup struct {
	Hash             uint64     `json:"hash" toon:"hash"`
	Lines            int        `json:"lines" toon:"lines"`
	Instances        []Instance `json:"instances" toon:"instances"`
	EstimatedSavings int        `json:"estimatedSavings" toon:"estimatedSavings"`
	Preview          string     `json:"preview,omitempty" toon:"preview,omitempty"`
}

// FunctionUnit is a function-like region found by heading patterns.
type FunctionUnit struct {
	File       string   `json:"file" toon:"file"`
	Name       string   `json:"name" toon:"name"`
	StartLine  int      `json:"startLine" toon:"startLine"`
	BodyLines  int      `json:"bodyLines" toon:"bodyLines"`
	Signature  []string `json:"signature" toon:"signature"`
	Complexity int      `json:"complexity" toon:"complexity"`

	tokens []string
}

// SignatureKey joins the signature tokens into a comparable key.
func (f FunctionUnit) SignatureKey() string {
	return strings.Join(f.Signature, " ")
}

// FunctionRef identifies a function inside a group.
type FunctionRef struct {
	File      string `json:"file" toon:"file"`
	Name      string `json:"name" toon:"name"`
	StartLine int    `json:"startLine" toon:"startLine"`
	BodyLines int    `json:"bodyLines" toon:"bodyLines"`
}

// StructuralGroup is a cluster of differently named functions in different
// files that share the same control-flow signature.
type StructuralGroup struct {
	Signature        string        `json:"signature" toon:"signature"`
	Functions        []FunctionRef `json:"functions" toon:"functions"`
	SuggestedName    string        `json:"suggestedName" toon:"suggestedName"`
	EstimatedSavings int           `json:"estimatedSavings" toon:"estimatedSavings"`
}

// NearGroup is a cluster of functions whose token shingles are similar
// without being structurally identical.
type NearGroup struct {
	Functions  []FunctionRef `json:"functions" toon:"functions"`
	Similarity float64       `json:"similarity" toon:"similarity"`
}

// PatternOccurrence is one line matching a configuration tag.
type PatternOccurrence struct {
	File string `json:"file" toon:"file"`
	Line int    `json:"line" toon:"line"`
	Text string `json:"text" toon:"text"`
}

// ConfigPattern is a configuration idiom repeated across files.
type ConfigPattern struct {
	Tag         string              `json:"tag" toon:"tag"`
	Files       []string            `json:"files" toon:"files"`
	Occurrences []PatternOccurrence `json:"occurrences" toon:"occurrences"`
}

// DependencyDuplicate is a package declared by more than one manifest.
type DependencyDuplicate struct {
	Name            string   `json:"name" toon:"name"`
	Versions        []string `json:"versions" toon:"versions"`
	Manifests       []string `json:"manifests" toon:"manifests"`
	VersionConflict bool     `json:"versionConflict" toon:"versionConflict"`
}

// Hotspot represents a file with high duplication.
type Hotspot struct {
	File           string `json:"file" toon:"file"`
	DuplicateLines int    `json:"duplicateLines" toon:"duplicateLines"`
	GroupCount     int    `json:"groupCount" toon:"groupCount"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalCodeLines       int     `json:"totalCodeLines" toon:"totalCodeLines"`
	DuplicatedLines      int     `json:"duplicatedLines" toon:"duplicatedLines"`
	DuplicationRatio     float64 `json:"duplicationRatio" toon:"duplicationRatio"`
	ExactGroups          int     `json:"exactGroups" toon:"exactGroups"`
	FunctionClusters     int     `json:"functionClusters" toon:"functionClusters"`
	NearDuplicateGroups  int     `json:"nearDuplicateGroups" toon:"nearDuplicateGroups"`
	ConfigPatterns       int     `json:"configPatterns" toon:"configPatterns"`
	DuplicateDeps        int     `json:"duplicateDependencies" toon:"duplicateDependencies"`
	VersionConflicts     int     `json:"versionConflicts" toon:"versionConflicts"`
	Functions            int     `json:"functions" toon:"functions"`
	AverageComplexity    float64 `json:"averageComplexity" toon:"averageComplexity"`
	TotalEstimatedSaving int     `json:"totalEstimatedSavings" toon:"totalEstimatedSavings"`
}

// Analysis represents the full duplicate detection result.
type Analysis struct {
	ExactBlocks      []ExactGroup          `json:"exactBlocks" toon:"exactBlocks"`
	FunctionClusters []StructuralGroup     `json:"functionClusters" toon:"functionClusters"`
	NearDuplicates   []NearGroup           `json:"nearDuplicates" toon:"nearDuplicates"`
	ConfigPatterns   []ConfigPattern       `json:"configurations" toon:"configurations"`
	Dependencies     []DependencyDuplicate `json:"dependencies" toon:"dependencies"`
	Functions        []FunctionUnit        `json:"-" toon:"-"`
	Hotspots         []Hotspot             `json:"hotspots,omitempty" toon:"hotspots,omitempty"`
	Summary          Summary               `json:"summary" toon:"summary"`
}

// File is one source file handed to the detector.
type File struct {
	RelPath string
	Ext     string
	Content []byte
}

// Input is everything the detector needs.
type Input struct {
	Files     []File
	Manifests []*facts.Manifest
}

// MinHashSignature represents a MinHash signature for similarity estimation.
type MinHashSignature struct {
	Values []uint64 `json:"values"`
}

// JaccardSimilarity computes similarity between two MinHash signatures.
func (s *MinHashSignature) JaccardSimilarity(other *MinHashSignature) float64 {
	if len(s.Values) != len(other.Values) || len(s.Values) == 0 {
		return 0.0
	}

	matches := 0
	for i := range s.Values {
		if s.Values[i] == other.Values[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(s.Values))
}

// Config holds duplicate detection configuration.
type Config struct {
	MinBlockLines       int
	MaxFunctionLines    int
	MinSignatureTokens  int
	SimilarityThreshold float64
	ShingleSize         int
	NumHashFunctions    int
	NumBands            int
	RowsPerBand         int
	MinFunctionTokens   int
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		MinBlockLines:       5,
		MaxFunctionLines:    200,
		MinSignatureTokens:  3,
		SimilarityThreshold: 0.8,
		ShingleSize:         5,
		NumHashFunctions:    128,
		NumBands:            32,
		RowsPerBand:         4,
		MinFunctionTokens:   30,
	}
}
