package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/internal/service/removal"
	toon "github.com/toon-format/toon-go"
)

// AnalyzeInput is the base input for every tool.
type AnalyzeInput struct {
	Path         string   `json:"path,omitempty" jsonschema:"Root directory to analyze. Defaults to the current directory."`
	EntryPoints  []string `json:"entry_points,omitempty" jsonschema:"Extra entry-point paths or glob patterns relative to the root."`
	IncludeTests *bool    `json:"include_tests,omitempty" jsonschema:"Classify test files. Defaults to the configured value."`
	Format       string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// RedundancyInput adds a token budget to the full analysis.
type RedundancyInput struct {
	AnalyzeInput
	TokenBudget int `json:"token_budget,omitempty" jsonschema:"Approximate token budget for the response. Over budget, only the summary is returned. Default 32000."`
}

// UnusedInput filters unused file candidates.
type UnusedInput struct {
	AnalyzeInput
	SafeOnly bool `json:"safe_only,omitempty" jsonschema:"Return only candidates that need no review."`
}

// DuplicatesInput selects duplication findings.
type DuplicatesInput struct {
	AnalyzeInput
	Top int `json:"top,omitempty" jsonschema:"Return at most N findings per category. Default all."`
}

func (in AnalyzeInput) options() analysis.Options {
	root := in.Path
	if root == "" {
		root = "."
	}
	return analysis.Options{Root: root, EntryPoints: in.EntryPoints, IncludeTests: in.IncludeTests}
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	if format == output.FormatJSON {
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return "", err
	}
	if format == output.FormatMarkdown {
		return "```\n" + string(out) + "\n```", nil
	}
	return string(out), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) run(ctx context.Context, in AnalyzeInput) (*analysis.Result, error) {
	return s.analysis.Analyze(ctx, in.options())
}

// budgetedResult is returned when the full result is over budget.
type budgetedResult struct {
	Note    string                    `json:"note" toon:"note"`
	Budget  output.TokenBudget        `json:"budget" toon:"budget"`
	Summary *analysis.SummaryDocument `json:"summary" toon:"summary"`
}

func (s *Server) handleAnalyzeRedundancy(ctx context.Context, req *mcp.CallToolRequest, input RedundancyInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.AnalyzeInput)
	result, err := s.run(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	text, err := formatOutput(result, format)
	if err != nil {
		return nil, nil, err
	}
	budget := output.MeasureBudget(text, input.TokenBudget)
	if !budget.Exceeded() {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil, nil
	}
	return toolResult(budgetedResult{
		Note: fmt.Sprintf("full result is ~%s tokens, over the %s budget; use the narrower tools for details",
			output.FormatTokenCount(budget.Tokens), output.FormatTokenCount(budget.Budget)),
		Budget:  budget,
		Summary: analysis.Condense(result),
	}, format)
}

type unusedResult struct {
	Unused      any `json:"unused" toon:"unused"`
	EntryPoints any `json:"entryPoints" toon:"entryPoints"`
	Empty       any `json:"emptyFiles" toon:"emptyFiles"`
	Orphans     any `json:"orphans" toon:"orphans"`
}

func (s *Server) handleFindUnusedFiles(ctx context.Context, req *mcp.CallToolRequest, input UnusedInput) (*mcp.CallToolResult, any, error) {
	result, err := s.run(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}

	candidates := result.Files.Unused
	if input.SafeOnly {
		safe := candidates[:0:0]
		for _, c := range candidates {
			if c.IsSafe() {
				safe = append(safe, c)
			}
		}
		candidates = safe
	}
	return toolResult(unusedResult{
		Unused:      candidates,
		EntryPoints: result.Dependencies.EntryPoints,
		Empty:       result.Files.Empty,
		Orphans:     result.Files.Orphans,
	}, getFormat(input.AnalyzeInput))
}

type duplicatesResult struct {
	ExactBlocks      any `json:"exactBlocks" toon:"exactBlocks"`
	FunctionClusters any `json:"functionClusters" toon:"functionClusters"`
	NearDuplicates   any `json:"nearDuplicates" toon:"nearDuplicates"`
	Configurations   any `json:"configurations" toon:"configurations"`
	Dependencies     any `json:"dependencies" toon:"dependencies"`
	IdenticalFiles   any `json:"identicalFiles" toon:"identicalFiles"`
	Summary          any `json:"summary" toon:"summary"`
}

func top[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func (s *Server) handleFindDuplicates(ctx context.Context, req *mcp.CallToolRequest, input DuplicatesInput) (*mcp.CallToolResult, any, error) {
	result, err := s.run(ctx, input.AnalyzeInput)
	if err != nil {
		return toolError(err.Error())
	}
	p := result.Patterns
	return toolResult(duplicatesResult{
		ExactBlocks:      top(p.ExactBlocks, input.Top),
		FunctionClusters: top(p.FunctionClusters, input.Top),
		NearDuplicates:   top(p.NearDuplicates, input.Top),
		Configurations:   top(p.Configurations, input.Top),
		Dependencies:     top(result.Dependencies.Duplicates, input.Top),
		IdenticalFiles:   top(result.Redundancy.IdenticalFiles, input.Top),
		Summary:          p.Summary,
	}, getFormat(input.AnalyzeInput))
}

type graphResult struct {
	Graph             any `json:"graph" toon:"graph"`
	Cycles            any `json:"cycles" toon:"cycles"`
	StronglyConnected any `json:"stronglyConnected" toon:"stronglyConnected"`
	Issues            any `json:"issues" toon:"issues"`
	Unused            any `json:"unusedDependencies" toon:"unusedDependencies"`
	Maintainability   any `json:"maintainability" toon:"maintainability"`
}

func (s *Server) handleDependencyGraph(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	result, err := s.run(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	d := result.Dependencies
	return toolResult(graphResult{
		Graph:             d.Graph,
		Cycles:            d.Cycles,
		StronglyConnected: d.StronglyConnected,
		Issues:            d.Issues,
		Unused:            d.Unused,
		Maintainability:   result.Metrics.Maintainability,
	}, getFormat(input))
}

func (s *Server) handlePlanRemoval(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	opts := input.options()
	result, err := s.analysis.Analyze(ctx, opts)
	if err != nil {
		return toolError(err.Error())
	}
	report, err := removal.New().Remove(ctx, result.Root, removal.FromResult(result), removal.Options{DryRun: true})
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report, getFormat(input))
}
