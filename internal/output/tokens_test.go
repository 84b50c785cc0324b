package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short", "abc", 1},
		{"exact", strings.Repeat("x", 400), 100},
		{"multibyte runes count once", strings.Repeat("é", 8), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}

func TestFormatTokenCount(t *testing.T) {
	tests := []struct {
		tokens int
		want   string
	}{
		{999, "999"},
		{1000, "1.0k"},
		{1500, "1.5k"},
		{32000, "32.0k"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTokenCount(tt.tokens))
		})
	}
}

func TestMeasureBudget(t *testing.T) {
	b := MeasureBudget(strings.Repeat("x", 8000), 8000)
	assert.Equal(t, 2000, b.Tokens)
	assert.Equal(t, 6000, b.Remaining)
	assert.InDelta(t, 25.0, b.UsagePercent, 0.01)
	assert.False(t, b.Exceeded())

	over := MeasureBudget(strings.Repeat("x", 400), 50)
	assert.True(t, over.Exceeded())
	assert.Equal(t, 0, over.Remaining)

	assert.Equal(t, DefaultTokenBudget, MeasureBudget("x", 0).Budget)
}
