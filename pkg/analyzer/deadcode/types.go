package deadcode

import "sort"

// Reason explains why a file is a removal candidate.
type Reason string

const (
	ReasonNoInbound   Reason = "no-inbound-edges"
	ReasonUnreachable Reason = "unreachable"
	ReasonEmpty       Reason = "empty"
	ReasonEmptyTest   Reason = "empty-test"
)

// ConfidenceLevel indicates how certain we are that removal is harmless.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
)

// String implements fmt.Stringer.
func (c ConfidenceLevel) String() string {
	return string(c)
}

// Safety is the removal verdict for a candidate.
type Safety string

const (
	SafetySafe           Safety = "safe"
	SafetyReviewRequired Safety = "review_required"
)

// EntrySource records why a file is an entry point.
type EntrySource string

const (
	EntryCaller         EntrySource = "caller"
	EntryManifestMain   EntrySource = "manifest-main"
	EntryManifestBin    EntrySource = "manifest-bin"
	EntryManifestScript EntrySource = "manifest-script"
	EntryConvention     EntrySource = "convention"
	EntryToolingConfig  EntrySource = "tooling-config"
	EntryTestRunner     EntrySource = "test-runner"
)

// EntryPointSet is the set of files treated as externally invoked.
type EntryPointSet struct {
	members map[string][]EntrySource
}

// NewEntryPointSet creates an empty set.
func NewEntryPointSet() *EntryPointSet {
	return &EntryPointSet{members: make(map[string][]EntrySource)}
}

// Add records path as an entry point from src. Repeated sources are ignored.
func (s *EntryPointSet) Add(path string, src EntrySource) {
	for _, existing := range s.members[path] {
		if existing == src {
			return
		}
	}
	s.members[path] = append(s.members[path], src)
}

// Contains reports whether path is an entry point.
func (s *EntryPointSet) Contains(path string) bool {
	_, ok := s.members[path]
	return ok
}

// Paths returns every entry point, sorted.
func (s *EntryPointSet) Paths() []string {
	paths := make([]string, 0, len(s.members))
	for p := range s.members {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of entry points.
func (s *EntryPointSet) Len() int {
	return len(s.members)
}

// Map returns a copy of the membership suitable for serialization.
func (s *EntryPointSet) Map() map[string][]EntrySource {
	out := make(map[string][]EntrySource, len(s.members))
	for p, srcs := range s.members {
		out[p] = append([]EntrySource(nil), srcs...)
	}
	return out
}

// Candidate is a file proposed for removal.
type Candidate struct {
	File           string          `json:"file" toon:"file"`
	Size           int64           `json:"size" toon:"size"`
	Reasons        []Reason        `json:"reasons" toon:"reasons"`
	SafetyWarnings []string        `json:"safetyWarnings,omitempty" toon:"safetyWarnings,omitempty"`
	Confidence     ConfidenceLevel `json:"confidence" toon:"confidence"`
	Safety         Safety          `json:"safety" toon:"safety"`
}

// HasReason reports whether r is among the candidate's reasons.
func (c *Candidate) HasReason(r Reason) bool {
	for _, existing := range c.Reasons {
		if existing == r {
			return true
		}
	}
	return false
}

// IsSafe reports whether the candidate can be removed without review.
func (c *Candidate) IsSafe() bool {
	return c.Safety == SafetySafe
}

// Summary provides aggregate statistics.
type Summary struct {
	ClassifiedFiles int `json:"classifiedFiles" toon:"classifiedFiles"`
	EntryPoints     int `json:"entryPoints" toon:"entryPoints"`
	Reachable       int `json:"reachable" toon:"reachable"`
	Unused          int `json:"unused" toon:"unused"`
	Empty           int `json:"empty" toon:"empty"`
	EmptyTests      int `json:"emptyTests" toon:"emptyTests"`
	Safe            int `json:"safe" toon:"safe"`
	ReviewRequired  int `json:"reviewRequired" toon:"reviewRequired"`
}

// Analysis is the result of usage and reachability analysis.
type Analysis struct {
	Candidates  []Candidate              `json:"candidates" toon:"candidates"`
	EntryPoints map[string][]EntrySource `json:"entryPoints" toon:"entryPoints"`
	Reachable   []string                 `json:"reachable" toon:"reachable"`
	Summary     Summary                  `json:"summary" toon:"summary"`
}

// Safe returns the candidates that may be removed without review.
func (a *Analysis) Safe() []Candidate {
	var safe []Candidate
	for _, c := range a.Candidates {
		if c.IsSafe() {
			safe = append(safe, c)
		}
	}
	return safe
}
