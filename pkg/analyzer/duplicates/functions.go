package duplicates

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/panbanda/sift/pkg/analyzer/facts"
)

var functionHeadings = []*regexp.Regexp{
	// function name( / async function name( / function* name(
	regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*[(<]`),
	// const name = (...) => / const name = async x => / const name = function
	regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|[A-Za-z_$][\w$]*\s*=>)`),
	// name: function( / name: (...) =>
	regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s*:\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>)`),
	// object and class methods: name(...) {
	regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|readonly|override|async|get|set)\s+)*\*?([A-Za-z_$][\w$]*)\s*\([^()'"` + "`" + `]*\)\s*(?::\s*[^{]+)?\{`),
}

// notMethodNames are words that look like method headings but are statements.
var notMethodNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "with": true, "do": true, "else": true,
}

// signatureKeywords are the control keywords kept in a function signature.
var signatureKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "try": true, "catch": true, "finally": true,
	"return": true, "throw": true, "await": true,
}

// complexityKeywords add one to a function's complexity each.
var complexityKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "case": true,
	"catch": true, "throw": true,
}

// headingName returns the function name declared on line, if any.
func headingName(line string) (string, bool) {
	for i, re := range functionHeadings {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if i == len(functionHeadings)-1 && notMethodNames[m[1]] {
			return "", false
		}
		return m[1], true
	}
	return "", false
}

// extractFunctions finds function units in lines. A unit whose opening
// brace does not appear within two lines of its heading, or whose body is
// not closed within maxLines, is skipped. Scanning resumes right after each
// heading so nested functions are found too.
func extractFunctions(file string, lines []string, maxLines int) []FunctionUnit {
	code := make([]string, len(lines))
	inBlock := false
	for i, line := range lines {
		code[i], inBlock = facts.StripComments(line, inBlock)
	}

	var units []FunctionUnit
	for i := range code {
		name, ok := headingName(code[i])
		if !ok {
			continue
		}
		end, tokens, ok := functionBody(code, i, maxLines)
		if !ok {
			continue
		}
		unit := FunctionUnit{
			File:      file,
			Name:      name,
			StartLine: i + 1,
			BodyLines: end - i + 1,
			tokens:    tokens,
		}
		unit.Signature = signature(tokens)
		unit.Complexity = complexity(tokens)
		units = append(units, unit)
	}
	return units
}

// functionBody balances braces from the heading line and returns the last
// line index of the body plus the tokens inside the outermost braces.
func functionBody(code []string, start, maxLines int) (int, []string, bool) {
	depth := 0
	opened := false
	var body []string
	for i := start; i < len(code) && i-start < maxLines; i++ {
		if !opened && i-start > 2 {
			return 0, nil, false
		}
		for _, tok := range tokenize(code[i]) {
			switch tok {
			case "{":
				if opened {
					body = append(body, tok)
				}
				depth++
				opened = true
				continue
			case "}":
				depth--
				if opened && depth == 0 {
					return i, body, true
				}
			}
			if opened {
				body = append(body, tok)
			}
		}
	}
	return 0, nil, false
}

// signature keeps control keywords and qualified call heads in order.
func signature(tokens []string) []string {
	var sig []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if signatureKeywords[tok] {
			sig = append(sig, tok)
			continue
		}
		if !isIdentifier(tok) && tok != "this" {
			continue
		}
		// qualified call head: a.b(...) or a.b.c(...)
		parts := []string{tok}
		j := i + 1
		for j+1 < len(tokens) && (tokens[j] == "." || tokens[j] == "?.") && isIdentifierToken(tokens[j+1]) {
			parts = append(parts, tokens[j+1])
			j += 2
		}
		if len(parts) > 1 && j < len(tokens) && tokens[j] == "(" {
			sig = append(sig, strings.Join(parts, "."))
		}
		i = j - 1
	}
	return sig
}

func isIdentifierToken(tok string) bool {
	return tok != "" && isIdentifierStart([]rune(tok)[0])
}

// complexity is 1 plus branch, loop and error-handling keywords plus
// short-circuit operators.
func complexity(tokens []string) int {
	c := 1
	for _, tok := range tokens {
		if complexityKeywords[tok] || tok == "&&" || tok == "||" {
			c++
		}
	}
	return c
}

// structuralGroups clusters functions that share a signature of at least
// minTokens tokens, appear in at least two files and carry at least two
// distinct names.
func structuralGroups(units []FunctionUnit, minTokens int) []StructuralGroup {
	bySig := make(map[string][]FunctionUnit)
	for _, u := range units {
		if len(u.Signature) < minTokens {
			continue
		}
		key := u.SignatureKey()
		bySig[key] = append(bySig[key], u)
	}

	var groups []StructuralGroup
	for key, members := range bySig {
		files := make(map[string]struct{})
		names := make(map[string]struct{})
		for _, m := range members {
			files[m.File] = struct{}{}
			names[m.Name] = struct{}{}
		}
		if len(files) < 2 || len(names) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].File != members[j].File {
				return members[i].File < members[j].File
			}
			return members[i].StartLine < members[j].StartLine
		})

		g := StructuralGroup{Signature: key}
		total, longest := 0, 0
		allNames := make([]string, 0, len(members))
		for _, m := range members {
			g.Functions = append(g.Functions, refOf(m))
			allNames = append(allNames, m.Name)
			total += m.BodyLines
			if m.BodyLines > longest {
				longest = m.BodyLines
			}
		}
		g.SuggestedName = SuggestName(allNames)
		g.EstimatedSavings = total - longest
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].EstimatedSavings != groups[j].EstimatedSavings {
			return groups[i].EstimatedSavings > groups[j].EstimatedSavings
		}
		return groups[i].Signature < groups[j].Signature
	})
	return groups
}

func refOf(u FunctionUnit) FunctionRef {
	return FunctionRef{File: u.File, Name: u.Name, StartLine: u.StartLine, BodyLines: u.BodyLines}
}

// SuggestName proposes a utility name from the camelCase words every name
// shares, in the order they appear in the first name. Without common words
// it falls back to "shared" plus the first name.
func SuggestName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	first := splitWords(names[0])
	var common []string
	for _, w := range first {
		shared := true
		for _, other := range names[1:] {
			if !containsWord(splitWords(other), w) {
				shared = false
				break
			}
		}
		if shared && !containsWord(common, w) {
			common = append(common, w)
		}
	}
	if len(common) == 0 {
		return "shared" + capitalize(names[0])
	}
	var sb strings.Builder
	sb.WriteString(common[0])
	for _, w := range common[1:] {
		sb.WriteString(capitalize(w))
	}
	return sb.String()
}

// splitWords splits a camelCase, PascalCase or snake_case name into
// lowercase words.
func splitWords(name string) []string {
	var words []string
	var current []rune
	runes := []rune(name)
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = nil
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '$' || r == '-':
			flush()
		case unicode.IsUpper(r):
			// start a new word unless inside an acronym
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				flush()
			}
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
