package duplicates

import (
	"strings"
)

// Placeholder tokens used by normalization.
const (
	identPlaceholder  = "ID"
	stringPlaceholder = "STR"
	numberPlaceholder = "NUM"
)

// keywords is the JavaScript/TypeScript reserved word set. Keywords
// survive normalization so that control structure stays visible.
var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true, "instanceof": true,
	"new": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true,
	"async": true, "await": true, "of": true, "true": true, "false": true,
	"null": true, "undefined": true,
	// TypeScript
	"interface": true, "type": true, "enum": true, "implements": true,
	"private": true, "protected": true, "public": true, "readonly": true,
	"abstract": true, "as": true, "declare": true,
}

func isKeyword(token string) bool {
	return keywords[token]
}

// tokenize splits a line or block of code into tokens.
// Handles string literals, numbers, identifiers, operators, and delimiters.
func tokenize(content string) []string {
	var tokens []string
	runes := []rune(content)
	i := 0

	for i < len(runes) {
		c := runes[i]

		if isWhitespace(c) {
			i++
			continue
		}

		if c == '"' || c == '\'' || c == '`' {
			tokens = append(tokens, collectStringLiteral(runes, &i, c))
			continue
		}

		if isDigit(c) {
			tokens = append(tokens, collectNumber(runes, &i))
			continue
		}

		if isIdentifierStart(c) {
			tokens = append(tokens, collectIdentifier(runes, &i))
			continue
		}

		if op := collectOperator(runes, &i); op != "" {
			tokens = append(tokens, op)
			continue
		}

		// Single character (delimiter or unknown)
		tokens = append(tokens, string(c))
		i++
	}

	return tokens
}

// collectStringLiteral collects a string literal including quotes.
func collectStringLiteral(runes []rune, i *int, quote rune) string {
	var sb strings.Builder
	sb.WriteRune(runes[*i])
	*i++

	for *i < len(runes) {
		c := runes[*i]
		sb.WriteRune(c)
		*i++

		if c == quote {
			break
		}
		if c == '\\' && *i < len(runes) {
			sb.WriteRune(runes[*i])
			*i++
		}
	}

	return sb.String()
}

// collectNumber collects a numeric literal.
func collectNumber(runes []rune, i *int) string {
	var sb strings.Builder
	for *i < len(runes) {
		c := runes[*i]
		if isDigit(c) || c == '.' || c == '_' || c == 'x' || c == 'X' ||
			c == 'b' || c == 'B' || c == 'o' || c == 'O' || c == 'n' ||
			(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			sb.WriteRune(c)
			*i++
		} else {
			break
		}
	}
	return sb.String()
}

// collectIdentifier collects an identifier.
func collectIdentifier(runes []rune, i *int) string {
	start := *i
	for *i < len(runes) && isIdentifierChar(runes[*i]) {
		*i++
	}
	return string(runes[start:*i])
}

// collectOperator collects multi-character operators.
func collectOperator(runes []rune, i *int) string {
	if *i+2 < len(runes) {
		op3 := string(runes[*i : *i+3])
		switch op3 {
		case "===", "!==", "...", "**=", "<<=", ">>=", "&&=", "||=", "??=", ">>>":
			*i += 3
			return op3
		}
	}

	if *i+1 < len(runes) {
		op2 := string(runes[*i : *i+2])
		switch op2 {
		case "==", "!=", "<=", ">=", "&&", "||", "<<", ">>",
			"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
			"++", "--", "=>", "??", "?.", "**":
			*i += 2
			return op2
		}
	}

	return ""
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$'
}

func isIdentifierChar(c rune) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func isWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentifier(token string) bool {
	return token != "" && isIdentifierStart([]rune(token)[0]) && !isKeyword(token)
}

func isStringLiteral(token string) bool {
	return token != "" && (token[0] == '"' || token[0] == '\'' || token[0] == '`')
}

// NormalizeLine replaces every identifier with a placeholder and joins the
// tokens with single spaces. Keywords, literals and operators are kept, so
// two lines that differ only in naming normalize identically.
func NormalizeLine(line string) string {
	tokens := tokenize(line)
	for i, t := range tokens {
		if isIdentifier(t) {
			tokens[i] = identPlaceholder
		}
	}
	return strings.Join(tokens, " ")
}

// normalizeForSimilarity additionally replaces literals, for the fuzzy
// comparison used by near-duplicate detection.
func normalizeForSimilarity(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch {
		case isStringLiteral(t):
			out = append(out, stringPlaceholder)
		case isDigit([]rune(t)[0]):
			out = append(out, numberPlaceholder)
		case isIdentifier(t):
			out = append(out, identPlaceholder)
		default:
			out = append(out, t)
		}
	}
	return out
}

// hashCommentExts are the extensions where '#' starts a line comment.
var hashCommentExts = map[string]bool{
	".yml":  true,
	".yaml": true,
	".sh":   true,
	".bash": true,
	".toml": true,
}

// isCommentLeader reports whether a trimmed line of a file with extension
// ext starts a comment. In JavaScript '#' begins a private member, so only
// a shebang counts there.
func isCommentLeader(trimmed, ext string) bool {
	if strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasPrefix(trimmed, "#!") {
		return true
	}
	return hashCommentExts[strings.ToLower(ext)] && strings.HasPrefix(trimmed, "#")
}
