package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptArg is a prompt argument declared in frontmatter. Occurrences of
// {{name}} in the body are replaced with the caller's value or Default.
type promptArg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default"`
}

type promptDef struct {
	Name        string      `yaml:"-"`
	Description string      `yaml:"description"`
	Arguments   []promptArg `yaml:"arguments"`
	Body        string      `yaml:"-"`
}

// pathArg is implied for every prompt.
var pathArg = promptArg{
	Name:        "path",
	Description: "Repository root to analyze. Defaults to the current directory.",
	Default:     ".",
}

func (s *Server) registerPrompts() {
	for _, def := range loadPrompts() {
		args := make([]*mcp.PromptArgument, 0, len(def.Arguments))
		for _, a := range def.Arguments {
			args = append(args, &mcp.PromptArgument{Name: a.Name, Description: a.Description})
		}
		s.server.AddPrompt(&mcp.Prompt{
			Name:        def.Name,
			Description: def.Description,
			Arguments:   args,
		}, makePromptHandler(def))
	}
}

// loadPrompts reads every embedded Markdown prompt. Files that cannot be
// read are skipped.
func loadPrompts() []promptDef {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil
	}
	var defs []promptDef
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			continue
		}
		def := parsePrompt(content)
		def.Name = strings.TrimSuffix(entry.Name(), ".md")
		defs = append(defs, def)
	}
	return defs
}

// parsePrompt splits YAML frontmatter from the body. Without valid
// frontmatter the whole content is the body. The path argument is always
// present and listed first.
func parsePrompt(content []byte) promptDef {
	def := promptDef{Body: string(content)}
	if rest, ok := bytes.CutPrefix(content, []byte("---\n")); ok {
		if front, body, found := bytes.Cut(rest, []byte("\n---\n")); found {
			var parsed promptDef
			if err := yaml.Unmarshal(front, &parsed); err == nil {
				parsed.Body = strings.TrimPrefix(string(body), "\n")
				def = parsed
			}
		}
	}

	args := []promptArg{pathArg}
	for _, a := range def.Arguments {
		if a.Name != pathArg.Name {
			args = append(args, a)
		}
	}
	def.Arguments = args
	return def
}

func makePromptHandler(def promptDef) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		var given map[string]string
		if req != nil && req.Params != nil {
			given = req.Params.Arguments
		}
		pairs := make([]string, 0, 2*len(def.Arguments))
		for _, a := range def.Arguments {
			value := a.Default
			if v := given[a.Name]; v != "" {
				value = v
			}
			pairs = append(pairs, "{{"+a.Name+"}}", value)
		}
		return &mcp.GetPromptResult{
			Description: def.Description,
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: strings.NewReplacer(pairs...).Replace(def.Body)},
			}},
		}, nil
	}
}
