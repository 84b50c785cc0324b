package output

import (
	"fmt"
	"unicode/utf8"
)

// DefaultTokenBudget caps structured responses handed to language models.
const DefaultTokenBudget = 32000

// CharsPerToken is the approximate character-to-token ratio for code-heavy
// JSON and TOON documents.
const CharsPerToken = 4.0

// TokenBudget reports how much of a budget a text would use.
type TokenBudget struct {
	Tokens       int     `json:"tokens" toon:"tokens"`
	Budget       int     `json:"budget" toon:"budget"`
	UsagePercent float64 `json:"usagePercent" toon:"usagePercent"`
	Remaining    int     `json:"remaining" toon:"remaining"`
}

// EstimateTokens returns an approximate token count for text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(float64(utf8.RuneCountInString(text))/CharsPerToken + 0.5)
}

// FormatTokenCount formats a token count for display. Counts of 1000 or
// more are shown as "X.Xk".
func FormatTokenCount(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("%d", tokens)
	}
	return fmt.Sprintf("%.1fk", float64(tokens)/1000)
}

// MeasureBudget estimates the tokens in text against budget. A
// non-positive budget means DefaultTokenBudget.
func MeasureBudget(text string, budget int) TokenBudget {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	tokens := EstimateTokens(text)
	return TokenBudget{
		Tokens:       tokens,
		Budget:       budget,
		UsagePercent: float64(tokens) / float64(budget) * 100,
		Remaining:    max(budget-tokens, 0),
	}
}

// Exceeded reports whether the text is over budget.
func (b TokenBudget) Exceeded() bool {
	return b.Tokens > b.Budget
}
