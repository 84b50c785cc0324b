// Package output renders analysis results as terminal tables, Markdown or
// structured documents.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	toon "github.com/toon-format/toon-go"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
	FormatYAML     Format = "yaml"
)

// Formats lists every supported format name.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatMarkdown), string(FormatTOON), string(FormatYAML)}
}

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// IsStructured reports whether f is a machine-readable format.
func (f Format) IsStructured() bool {
	return f == FormatJSON || f == FormatTOON || f == FormatYAML
}

// Renderable is a report fragment that knows how to print itself for
// humans and which value to serialize for machines.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	RenderData() any
}

// Formatter writes results to a single writer in one format.
type Formatter struct {
	format  Format
	writer  io.Writer
	colored bool
}

// NewWriterFormatter creates a formatter writing to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, writer: w, colored: colored}
}

// Output writes data in the configured format. Renderables choose their own
// text and Markdown layout; anything else is serialized, fenced as JSON
// for Markdown and plain JSON for text.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)
	switch {
	case ok && f.format.IsStructured():
		return f.encode(r.RenderData())
	case ok && f.format == FormatMarkdown:
		return r.RenderMarkdown(f.writer)
	case ok:
		return r.RenderText(f.writer, f.colored)
	case f.format == FormatMarkdown:
		if _, err := fmt.Fprintln(f.writer, "```json"); err != nil {
			return err
		}
		if err := encodeJSON(f.writer, data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.writer, "```")
		return err
	default:
		return f.encode(data)
	}
}

func (f *Formatter) encode(data any) error {
	switch f.format {
	case FormatTOON:
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(f.writer, string(out))
		return err
	case FormatYAML:
		return encodeYAML(f.writer, data)
	default:
		return encodeJSON(f.writer, data)
	}
}

func encodeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// encodeYAML routes data through JSON first so keys follow the json tags
// instead of lowercased Go field names.
func encodeYAML(w io.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return err
	}
	return encoder.Close()
}
