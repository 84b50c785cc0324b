package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/progress"
	"github.com/panbanda/sift/internal/remote"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/pkg/analyzer/score"
	"github.com/panbanda/sift/pkg/config"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze a tree for unused files and redundancy",
		ArgsUsage: "[path | owner/repo[@ref] | git URL]",
		Flags: append(analysisFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Where to save the full JSON report (default from config)",
			},
			&cli.StringFlag{
				Name:  "summary-output",
				Usage: "Where to save the condensed JSON summary (default from config)",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Do not write report files",
			},
			&cli.IntFlag{
				Name:  "min-code-health",
				Usage: "Fail when the code health score is below this value (0-100)",
			},
			&cli.IntFlag{
				Name:  "min-maintainability",
				Usage: "Fail when the maintainability score is below this value (0-100)",
			},
			&cli.IntFlag{
				Name:  "min-redundancy",
				Usage: "Fail when the redundancy score is below this value (0-100)",
			},
		),
		Action: runAnalyzeCmd,
	}
}

// analysisFlags are shared by every command that runs an analysis.
func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Value:   ".",
			Usage:   "Root directory to analyze",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: " + strings.Join(output.Formats(), ", ") + " (default from config)",
		},
		&cli.StringSliceFlag{
			Name:    "entry",
			Aliases: []string{"e"},
			Usage:   "Additional entry point path or glob (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "include-tests",
			Usage: "Classify test files (overrides scan.include_tests)",
		},
		&cli.BoolFlag{
			Name:  "include-deps",
			Usage: "Scan the dependency cache directory (node_modules)",
		},
		&cli.BoolFlag{
			Name:  "cache",
			Usage: "Reuse facts cached for unchanged files (overrides cache.enabled)",
		},
		&cli.BoolFlag{
			Name:  "full-clone",
			Usage: "Clone remote repositories with full history instead of depth 1",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Hide the progress spinner",
		},
	}
}

// runOptions translates flags into analysis options. IncludeTests is only
// overridden when the flag was given.
func runOptions(c *cli.Context, root string) analysis.Options {
	opts := analysis.Options{
		Root:                   root,
		EntryPoints:            c.StringSlice("entry"),
		IncludeDependencyCache: c.Bool("include-deps"),
	}
	if c.IsSet("include-tests") {
		include := c.Bool("include-tests")
		opts.IncludeTests = &include
	}
	return opts
}

func thresholdsFrom(c *cli.Context) score.Thresholds {
	return score.Thresholds{
		CodeHealth:      c.Int("min-code-health"),
		Maintainability: c.Int("min-maintainability"),
		Redundancy:      c.Int("min-redundancy"),
	}
}

func stringFlagOr(c *cli.Context, name, fallback string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return fallback
}

// resolveRoot clones remote references into a temporary directory. The
// returned cleanup removes the clone and is safe to call for local paths.
func resolveRoot(c *cli.Context, path string) (string, func(), error) {
	src, err := remote.Parse(path)
	if err != nil || src == nil {
		return path, func() {}, err
	}

	w := c.App.ErrWriter
	color.New(color.FgCyan).Fprintf(w, "Cloning %s...\n", src.URL)
	var progressOut io.Writer
	if !c.Bool("no-progress") {
		progressOut = w
	}
	if err := src.Clone(c.Context, progressOut, !c.Bool("full-clone")); err != nil {
		_ = src.Cleanup()
		return "", func() {}, err
	}
	dir := src.CloneDir
	cleanup := func() {
		if err := src.Cleanup(); err != nil {
			loggerFrom(c).Warn("removing clone failed", "path", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

// runAnalysis resolves the root, loads its configuration and runs one
// analysis. adjust, when set, sees the loaded configuration before the run.
// Remote clones are removed before it returns.
func runAnalysis(c *cli.Context, adjust func(*config.Config)) (*analysis.Result, *config.Config, error) {
	root, cleanup, err := resolveRoot(c, getPath(c))
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	cfg, cfgPath, err := loadConfig(c, root)
	if err != nil {
		return nil, nil, err
	}
	logger := loggerFrom(c)
	if cfgPath != "" {
		logger.Debug("loaded config", "path", cfgPath)
	}
	if c.IsSet("cache") {
		cfg.Cache.Enabled = c.Bool("cache")
	}
	if adjust != nil {
		adjust(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}

	reporter := progress.New(c.App.ErrWriter, !c.Bool("no-progress"))
	opts := runOptions(c, root)
	opts.OnStage = reporter.Stage
	opts.OnFile = reporter.File

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(logger))
	start := time.Now()
	result, err := svc.Analyze(ctx, opts)
	if err != nil {
		reporter.Fail(err)
		return nil, nil, fmt.Errorf("analysis failed: %w", err)
	}
	reporter.Done()
	logger.Debug("analysis complete", "runId", result.RunID, "elapsed", time.Since(start).Round(time.Millisecond))
	return result, cfg, nil
}

// formatterFor returns the output format and a formatter on stdout.
func formatterFor(c *cli.Context, cfg *config.Config) (output.Format, *output.Formatter) {
	format := output.ParseFormat(stringFlagOr(c, "format", cfg.Output.Format))
	return format, output.NewWriterFormatter(format, c.App.Writer, cfg.Output.Color && !color.NoColor)
}

func runAnalyzeCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c, nil)
	if err != nil {
		return err
	}
	result.Metrics.CheckThresholds(thresholdsFrom(c))
	format, formatter := formatterFor(c, cfg)

	if !c.Bool("no-save") {
		fullPath := stringFlagOr(c, "output", cfg.Output.Path)
		summaryPath := stringFlagOr(c, "summary-output", cfg.Output.SummaryPath)
		if err := analysis.Save(result, fullPath, summaryPath); err != nil {
			return err
		}
		if !format.IsStructured() {
			color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "Report saved to %s\n", fullPath)
		}
	}

	if format.IsStructured() {
		err = formatter.Output(result)
	} else {
		err = formatter.Output(buildReport(result))
	}
	if err != nil {
		return err
	}

	if !result.Metrics.Passed {
		return errThresholds
	}
	return nil
}
