// Package facts extracts imports, exports and content flags from JavaScript
// and TypeScript sources using line-oriented patterns.
//
// The patterns are heuristics. They do not build a syntax tree, so unusual
// formatting (a specifier split across lines, imports inside strings) can be
// missed or misread. Block and line comments are removed before matching.
package facts

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/panbanda/sift/pkg/source"
)

var (
	importFromRe = regexp.MustCompile(`^\s*import\s+(?:type\s+)?(.+?)\s*from\s*['"]([^'"]+)['"]`)
	sideEffectRe = regexp.MustCompile(`^\s*import\s*['"]([^'"]+)['"]`)
	exportFromRe = regexp.MustCompile(`^\s*export\s+(?:type\s+)?(\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*['"]([^'"]+)['"]`)
	callRe       = regexp.MustCompile(`\b(require\.resolve|require|import)\s*\(`)
	bindingRe    = regexp.MustCompile(`\b(?:const|let|var)\s+(\{[^}]*\}|[\w$]+)\s*=\s*(?:await\s+)?require\s*\(`)

	exportDefaultRe = regexp.MustCompile(`^\s*export\s+default\b`)
	exportDeclRe    = regexp.MustCompile(`^\s*export\s+(?:declare\s+)?(?:async\s+)?(?:abstract\s+)?(?:const|let|var|function\*?|class|interface|type|enum|namespace)\s+([\w$]+)`)
	exportListRe    = regexp.MustCompile(`^\s*export\s+(?:type\s+)?\{([^}]*)\}`)
	moduleExportsRe = regexp.MustCompile(`\bmodule\.exports\s*=(?:[^=]|$)`)
	namedCJSRe      = regexp.MustCompile(`\b(?:module\.)?exports\.([\w$]+)\s*=(?:[^=]|$)`)

	testCallRe = regexp.MustCompile(`\b(describe|it|test|expect)(?:\.[\w$]+)*\s*\(`)

	openBraceStmtRe = regexp.MustCompile(`^\s*(?:import\s+(?:type\s+)?(?:[\w$]+\s*,\s*)?|export\s+(?:type\s+)?)\{[^}]*$`)
)

// maxPendingLines bounds how far a brace-opened import/export statement is
// joined across lines.
const maxPendingLines = 50

// SplitLines splits content into lines without their terminators.
// A trailing newline does not produce a final empty line.
func SplitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// Extract derives facts from one file. It never fails: problems are
// recorded in FileFacts.Errors. Only JavaScript-like files have their
// imports and exports parsed.
func Extract(rec source.FileRecord, content []byte) *FileFacts {
	f := &FileFacts{
		RelPath: rec.RelPath,
		Ext:     rec.Ext,
		Empty:   len(bytes.TrimSpace(content)) == 0,
	}
	lines := SplitLines(content)
	f.Lines = len(lines)
	if f.Empty {
		return f
	}
	if bytes.IndexByte(content, 0) >= 0 {
		f.Errors = append(f.Errors, "binary content skipped")
		return f
	}
	if !source.IsJSLike(rec.Ext) {
		return f
	}

	var (
		inBlock      bool
		hasCode      bool
		pending      strings.Builder
		pendingLine  int
		pendingCount int
	)

	for i, raw := range lines {
		lineNo := i + 1
		if i == 0 && strings.HasPrefix(raw, "#!") {
			continue
		}

		code, stillInBlock := StripComments(raw, inBlock)
		inBlock = stillInBlock
		if strings.TrimSpace(code) == "" {
			continue
		}
		hasCode = true

		if pendingLine > 0 {
			pending.WriteByte(' ')
			pending.WriteString(strings.TrimSpace(code))
			pendingCount++
			if strings.Contains(code, "}") || pendingCount >= maxPendingLines {
				f.analyzeStatement(pending.String(), pendingLine)
				pending.Reset()
				pendingLine = 0
			}
			continue
		}

		if openBraceStmtRe.MatchString(code) {
			pending.WriteString(strings.TrimSpace(code))
			pendingLine = lineNo
			pendingCount = 1
			continue
		}

		f.analyzeStatement(code, lineNo)
	}

	if pendingLine > 0 {
		f.analyzeStatement(pending.String(), pendingLine)
	}
	if inBlock {
		f.Errors = append(f.Errors, "unterminated block comment")
	}
	f.CommentOnly = !hasCode
	return f
}

// analyzeStatement applies the import, export and test-call patterns to a
// single comment-free statement.
func (f *FileFacts) analyzeStatement(code string, line int) {
	if m := exportFromRe.FindStringSubmatch(code); m != nil {
		names := reExportNames(m[1])
		f.Imports = append(f.Imports, Import{
			Specifier: m[2],
			Line:      line,
			Kind:      KindStatic,
			Names:     names,
			ReExport:  true,
		})
		for _, n := range names {
			f.Exports = append(f.Exports, Export{Name: n, Line: line, Kind: ExportReExport})
		}
	} else if m := importFromRe.FindStringSubmatch(code); m != nil {
		f.Imports = append(f.Imports, Import{
			Specifier: m[2],
			Line:      line,
			Kind:      KindStatic,
			Names:     importNames(m[1]),
		})
	} else if m := sideEffectRe.FindStringSubmatch(code); m != nil {
		f.Imports = append(f.Imports, Import{Specifier: m[1], Line: line, Kind: KindStatic})
	} else {
		f.collectExports(code, line)
	}

	f.collectCalls(code, line)

	if !f.HasTestCalls {
		for _, loc := range testCallRe.FindAllStringIndex(code, -1) {
			if loc[0] == 0 || code[loc[0]-1] != '.' {
				f.HasTestCalls = true
				break
			}
		}
	}
}

func (f *FileFacts) collectExports(code string, line int) {
	switch {
	case exportDefaultRe.MatchString(code):
		f.Exports = append(f.Exports, Export{Name: "default", Line: line, Kind: ExportDefault})
	case exportDeclRe.MatchString(code):
		m := exportDeclRe.FindStringSubmatch(code)
		f.Exports = append(f.Exports, Export{Name: m[1], Line: line, Kind: ExportNamed})
	case exportListRe.MatchString(code):
		m := exportListRe.FindStringSubmatch(code)
		for _, n := range specifierNames(m[1]) {
			f.Exports = append(f.Exports, Export{Name: n, Line: line, Kind: ExportNamed})
		}
	}

	if moduleExportsRe.MatchString(code) {
		f.Exports = append(f.Exports, Export{Name: "module.exports", Line: line, Kind: ExportCommonJS})
	}
	for _, m := range namedCJSRe.FindAllStringSubmatch(code, -1) {
		f.Exports = append(f.Exports, Export{Name: m[1], Line: line, Kind: ExportCommonJS})
	}
}

// collectCalls records require(), require.resolve() and import() calls.
func (f *FileFacts) collectCalls(code string, line int) {
	var bound []string
	if m := bindingRe.FindStringSubmatch(code); m != nil {
		bound = bindingNames(m[1])
	}

	for _, loc := range callRe.FindAllStringSubmatchIndex(code, -1) {
		if loc[0] > 0 {
			prev := code[loc[0]-1]
			if prev == '.' || prev == '$' {
				continue
			}
		}
		fn := code[loc[2]:loc[3]]
		arg := callArgument(code[loc[1]:])
		if arg == "" {
			continue
		}

		imp := Import{Line: line}
		if lit, ok := stringLiteral(arg); ok {
			imp.Specifier = lit
		} else {
			imp.Specifier = literalPrefix(arg)
			imp.Computed = true
		}

		switch {
		case fn == "require" && !imp.Computed:
			imp.Kind = KindStatic
			imp.Names = bound
			bound = nil
		default:
			imp.Kind = KindDynamic
		}
		f.Imports = append(f.Imports, imp)
	}
}

// StripComments removes // and /* */ comments from a line. inBlock reports
// whether the line starts inside a block comment; the returned flag reports
// whether the next line does. Quoted strings are left intact.
func StripComments(line string, inBlock bool) (string, bool) {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inBlock {
			if c == '*' && i+1 < len(line) && line[i+1] == '/' {
				inBlock = false
				i++
			}
			continue
		}
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				b.WriteByte(line[i+1])
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return b.String(), false
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			inBlock = true
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), inBlock
}

// callArgument returns the text between the opening parenthesis (already
// consumed) and its matching close. An unclosed call yields the remainder.
func callArgument(rest string) string {
	depth := 1
	var quote byte
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(rest[:i])
			}
		}
	}
	return strings.TrimSpace(rest)
}

// stringLiteral returns the contents of arg when it is a single quoted
// string or a template literal without substitutions.
func stringLiteral(arg string) (string, bool) {
	if len(arg) < 2 {
		return "", false
	}
	q := arg[0]
	if (q != '\'' && q != '"' && q != '`') || arg[len(arg)-1] != q {
		return "", false
	}
	inner := arg[1 : len(arg)-1]
	if strings.ContainsRune(inner, rune(q)) {
		return "", false
	}
	if q == '`' && strings.Contains(inner, "${") {
		return "", false
	}
	return inner, true
}

// literalPrefix returns the leading constant portion of a computed argument,
// or the raw argument when there is none.
func literalPrefix(arg string) string {
	if arg == "" {
		return ""
	}
	switch q := arg[0]; q {
	case '`':
		inner := arg[1:]
		if i := strings.Index(inner, "${"); i >= 0 {
			inner = inner[:i]
		}
		if i := strings.IndexByte(inner, '`'); i >= 0 {
			inner = inner[:i]
		}
		if inner != "" {
			return inner
		}
	case '\'', '"':
		if i := strings.IndexByte(arg[1:], q); i > 0 {
			return arg[1 : i+1]
		}
	}
	return arg
}

// importNames returns the local bindings of an import clause such as
// `React, { useState as s }` or `* as ns`.
func importNames(clause string) []string {
	var names, braced []string
	clause = strings.TrimSpace(clause)
	if i := strings.IndexByte(clause, '{'); i >= 0 {
		end := strings.IndexByte(clause[i:], '}')
		if end < 0 {
			end = len(clause) - i
		}
		braced = specifierNames(clause[i+1 : i+end])
		clause = clause[:i] + clause[min(len(clause), i+end+1):]
	}
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		names = append(names, fields[len(fields)-1])
	}
	return append(names, braced...)
}

// specifierNames parses the inside of `{ a, b as c, type d }` and returns
// the visible names.
func specifierNames(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "type "))
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		names = append(names, fields[len(fields)-1])
	}
	return names
}

func reExportNames(clause string) []string {
	clause = strings.TrimSpace(clause)
	if strings.HasPrefix(clause, "{") {
		return specifierNames(strings.Trim(clause, "{}"))
	}
	fields := strings.Fields(clause)
	if len(fields) == 3 {
		return []string{fields[2]}
	}
	return []string{"*"}
}

// bindingNames handles `x` and destructured `{ a, b: c }` require targets.
func bindingNames(target string) []string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "{") {
		return []string{target}
	}
	var names []string
	for _, part := range strings.Split(strings.Trim(target, "{}"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, ':'); i >= 0 {
			part = strings.TrimSpace(part[i+1:])
		}
		if i := strings.IndexByte(part, '='); i >= 0 {
			part = strings.TrimSpace(part[:i])
		}
		names = append(names, part)
	}
	return names
}
