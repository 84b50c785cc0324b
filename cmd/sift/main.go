package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/sift/pkg/config"
	"github.com/urfave/cli/v2"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errThresholds is returned when a score falls below a configured minimum.
var errThresholds = errors.New("score thresholds not met")

func newApp() *cli.App {
	return &cli.App{
		Name:     "sift",
		Usage:    "Find unused files and redundancy in JavaScript and TypeScript trees",
		Version:  fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Metadata: make(map[string]interface{}),
		Description: `Sift scans a source tree, builds the file-level import graph and reports
files no entry point reaches, duplicated code and configuration, repeated
dependencies, empty files and directories, and broken documentation links.

Supports: .js, .jsx, .ts, .tsx, .mjs, .cjs plus package.json, markdown and YAML`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"SIFT_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging and detailed errors",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				color.NoColor = true
			}
			level := slog.LevelWarn
			if c.Bool("debug") {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			c.App.Metadata["logger"] = logger
			return nil
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			unusedCmd(),
			duplicatesCmd(),
			graphCmd(),
			removeCmd(),
			configCmd(),
			cacheCmd(),
			watchCmd(),
			mcpCmd(),
		},
		ErrWriter: os.Stderr,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		printError(os.Stderr, err, hasFlag(os.Args, "--debug"))
		os.Exit(1)
	}
}

// printError writes err in red. With debug set, every wrapped layer is
// listed with its type.
func printError(w io.Writer, err error, debug bool) {
	color.New(color.FgRed).Fprintf(w, "Error: %v\n", err)
	if !debug {
		return
	}
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(w, "  caused by %T: %v\n", e, e)
	}
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// loggerFrom returns the logger installed by the app's Before hook.
func loggerFrom(c *cli.Context) *slog.Logger {
	if logger, ok := c.App.Metadata["logger"].(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// loadConfig loads --config, or the first config file found in root, the
// working directory or their .sift directories.
func loadConfig(c *cli.Context, root string) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" && root != "" {
		path = config.Find(root)
	}
	return config.LoadOrDefault(path)
}

// getPath returns the first positional argument, then --path, then ".".
func getPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	if c.IsSet("path") {
		return c.String("path")
	}
	return "."
}
