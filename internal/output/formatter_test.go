package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finding struct {
	File       string `json:"file" toon:"file"`
	Reason     string `json:"reason" toon:"reason"`
	SizeBytes  int64  `json:"sizeBytes" toon:"sizeBytes"`
	Reviewable bool   `json:"reviewable" toon:"reviewable"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"JSON", FormatJSON},
		{"md", FormatMarkdown},
		{"markdown", FormatMarkdown},
		{"toon", FormatTOON},
		{"yml", FormatYAML},
		{"YAML", FormatYAML},
		{"", FormatText},
		{"csv", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFormat(tt.input))
		})
	}
}

func TestFormatsRoundTrip(t *testing.T) {
	for _, name := range Formats() {
		assert.Equal(t, Format(name), ParseFormat(name))
	}
}

func TestIsStructured(t *testing.T) {
	assert.True(t, FormatJSON.IsStructured())
	assert.True(t, FormatTOON.IsStructured())
	assert.True(t, FormatYAML.IsStructured())
	assert.False(t, FormatText.IsStructured())
	assert.False(t, FormatMarkdown.IsStructured())
}

func TestTableRenderText(t *testing.T) {
	table := NewTable(
		"Unused Files",
		[]string{"File", "Reason"},
		[][]string{{"src/old.js", "unreachable"}, {"src/empty.ts", "empty"}},
		[]string{"Total", "2"},
		nil,
	)
	var buf bytes.Buffer
	require.NoError(t, table.RenderText(&buf, false))

	out := buf.String()
	for _, want := range []string{"Unused Files", "FILE", "REASON", "src/old.js", "unreachable", "Total"} {
		assert.Contains(t, out, want)
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable("Cycles", []string{"Files"}, [][]string{{"a.js -> b.js -> a.js"}}, nil, nil)
	var buf bytes.Buffer
	require.NoError(t, table.RenderMarkdown(&buf))

	assert.Equal(t, "## Cycles\n\n| Files |\n| --- |\n| a.js -> b.js -> a.js |\n\n", buf.String())
}

func TestTableRenderMarkdownEscapesPipes(t *testing.T) {
	table := NewTable("", []string{"Pattern"}, [][]string{{"a|b\nc"}}, nil, nil)
	var buf bytes.Buffer
	require.NoError(t, table.RenderMarkdown(&buf))

	assert.Contains(t, buf.String(), `| a\|b c |`)
}

func TestTableRenderDataFallsBackToRows(t *testing.T) {
	table := NewTable("", []string{"File", "Reason"}, [][]string{{"a.js", "empty"}}, nil, nil)
	assert.Equal(t, []map[string]string{{"File": "a.js", "Reason": "empty"}}, table.RenderData())

	data := []finding{{File: "a.js"}}
	assert.Equal(t, data, NewTable("", nil, nil, nil, data).RenderData())
}

func TestSectionRendering(t *testing.T) {
	s := &Section{
		Title:   "Scores",
		Content: "codeHealth 70",
		Sections: []Section{
			{Title: "Details", Content: "2 unused files"},
		},
	}

	var text bytes.Buffer
	require.NoError(t, s.RenderText(&text, false))
	assert.Contains(t, text.String(), "Scores\n======")
	assert.Contains(t, text.String(), "Details\n-------")

	var md bytes.Buffer
	require.NoError(t, s.RenderMarkdown(&md))
	assert.Contains(t, md.String(), "## Scores")
	assert.Contains(t, md.String(), "### Details")
}

func TestReportRendering(t *testing.T) {
	r := &Report{
		Title: "Redundancy Report",
		Sections: []Renderable{
			&Section{Title: "Summary", Content: "3 findings"},
			NewTable("Files", []string{"File"}, [][]string{{"a.js"}}, nil, nil),
		},
		Data: map[string]int{"findings": 3},
	}

	var text bytes.Buffer
	require.NoError(t, r.RenderText(&text, false))
	assert.True(t, strings.HasPrefix(text.String(), "Redundancy Report\n"))
	assert.Contains(t, text.String(), "3 findings")

	var md bytes.Buffer
	require.NoError(t, r.RenderMarkdown(&md))
	assert.True(t, strings.HasPrefix(md.String(), "# Redundancy Report\n"))

	assert.Equal(t, map[string]int{"findings": 3}, r.RenderData())
}

func TestFormatterStructuredOutputs(t *testing.T) {
	data := []finding{{File: "src/old.js", Reason: "unreachable", SizeBytes: 120, Reviewable: true}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatJSON, &buf, false).Output(data))

		var decoded []finding
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, data, decoded)
	})

	t.Run("yaml uses json keys", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatYAML, &buf, false).Output(data))
		assert.Contains(t, buf.String(), "sizeBytes: 120")
		assert.Contains(t, buf.String(), "file: src/old.js")
	})

	t.Run("toon", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatTOON, &buf, false).Output(data))
		assert.Contains(t, buf.String(), "src/old.js")
		assert.Contains(t, buf.String(), "sizeBytes")
	})

	t.Run("markdown wraps raw data", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterFormatter(FormatMarkdown, &buf, false).Output(data))
		assert.True(t, strings.HasPrefix(buf.String(), "```json\n"))
		assert.True(t, strings.HasSuffix(buf.String(), "```\n"))
	})
}

func TestFormatterRenderableUsesRenderData(t *testing.T) {
	table := NewTable("Files", []string{"File"}, [][]string{{"a.js"}}, nil, map[string]int{"unused": 1})

	var buf bytes.Buffer
	require.NoError(t, NewWriterFormatter(FormatYAML, &buf, false).Output(table))
	assert.Equal(t, "unused: 1\n", buf.String())
}

func TestColorHelpersKeepText(t *testing.T) {
	for _, impact := range []string{"high", "medium", "low", "other"} {
		assert.Contains(t, ImpactColor(impact, "remove a.js"), "remove a.js")
	}
	for _, score := range []float64{95, 60, 10} {
		assert.Contains(t, ScoreColor(score, "score"), "score")
	}
}
