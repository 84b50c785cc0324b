// Package links finds relative links in markdown documents whose targets
// do not exist.
package links

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/panbanda/sift/pkg/analyzer/facts"
)

var (
	inlineLinkRe    = regexp.MustCompile(`!?\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+["'(][^)]*)?\)`)
	referenceLinkRe = regexp.MustCompile(`^\s{0,3}\[[^\]]+\]:\s*<?(\S+?)>?(?:\s+.*)?$`)
	schemeRe        = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
)

// Reasons a link is broken.
const (
	ReasonMissing = "missing"
	ReasonEscapes = "escapes-root"
)

// BrokenLink is a relative link whose target does not exist.
type BrokenLink struct {
	File   string `json:"file" toon:"file"`
	Line   int    `json:"line" toon:"line"`
	Target string `json:"target" toon:"target"`
	Reason string `json:"reason" toon:"reason"`
}

// Document is a markdown file and its content.
type Document struct {
	RelPath string
	Content []byte
}

// Checker validates relative markdown links.
type Checker struct {
	exists func(rel string) bool
}

// Option is a functional option for configuring Checker.
type Option func(*Checker)

// WithExists replaces the existence check. rel is slash-separated and
// relative to the analysis root.
func WithExists(exists func(rel string) bool) Option {
	return func(c *Checker) {
		c.exists = exists
	}
}

// New creates a checker that tests targets on disk under root.
func New(root string, opts ...Option) *Checker {
	c := &Checker{
		exists: func(rel string) bool {
			_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
			return err == nil
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsMarkdown reports whether rel names a markdown file.
func IsMarkdown(rel string) bool {
	ext := strings.ToLower(path.Ext(rel))
	return ext == ".md" || ext == ".markdown"
}

// Check scans every document and returns the broken links in document
// order. Links inside fenced code blocks are ignored.
func (c *Checker) Check(ctx context.Context, docs []Document) ([]BrokenLink, error) {
	var broken []BrokenLink
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		broken = append(broken, c.checkDocument(doc)...)
	}
	return broken, nil
}

func (c *Checker) checkDocument(doc Document) []BrokenLink {
	var broken []BrokenLink
	inFence := false
	for i, line := range facts.SplitLines(doc.Content) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		var targets []string
		for _, m := range inlineLinkRe.FindAllStringSubmatch(line, -1) {
			targets = append(targets, m[1])
		}
		if m := referenceLinkRe.FindStringSubmatch(line); m != nil {
			targets = append(targets, m[1])
		}

		for _, target := range targets {
			rel, ok := localTarget(target)
			if !ok {
				continue
			}
			resolved := path.Clean(path.Join(path.Dir(doc.RelPath), rel))
			switch {
			case resolved == ".." || strings.HasPrefix(resolved, "../"):
				broken = append(broken, BrokenLink{File: doc.RelPath, Line: i + 1, Target: target, Reason: ReasonEscapes})
			case !c.exists(resolved):
				broken = append(broken, BrokenLink{File: doc.RelPath, Line: i + 1, Target: target, Reason: ReasonMissing})
			}
		}
	}
	return broken
}

// localTarget strips fragments and queries from a link target and reports
// whether it refers to a relative file. URLs with a scheme, pure anchors
// and site-absolute paths are not checked.
func localTarget(target string) (string, bool) {
	if target == "" || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || schemeRe.MatchString(target) {
		return "", false
	}
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "", false
	}
	if decoded, err := url.PathUnescape(target); err == nil {
		target = decoded
	}
	return target, true
}
