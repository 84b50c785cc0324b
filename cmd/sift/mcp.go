package main

import (
	"fmt"

	"github.com/panbanda/sift/internal/mcpserver"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes sift's analysis
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "sift": {
        "command": "sift",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_redundancy  Full analysis: summary, scores, recommendations
  - find_unused_files   Files no entry point reaches
  - find_duplicates     Duplicated blocks, functions and configuration
  - dependency_graph    Import graph, cycles and duplicate dependencies
  - plan_removal        Dry-run removal plan for safe candidates`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP server manifest (server.json)",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c, "")
	if err != nil {
		return err
	}
	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(loggerFrom(c)))
	return mcpserver.NewServer(version, svc).Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	manifest, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(manifest))
	return nil
}
