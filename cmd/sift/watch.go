package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/sift/internal/scanner"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch a tree and re-analyze when files change",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Value:   ".",
				Usage:   "Root directory to watch",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-analyzing",
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
				Name:  "no-cache",
				Usage: "Re-extract every file on each run",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	root, err := filepath.Abs(getPath(c))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	cfg, _, err := loadConfig(c, root)
	if err != nil {
		return err
	}
	logger := loggerFrom(c)
	cfg.Cache.Enabled = !c.Bool("no-cache")

	filter := scanner.NewScanner(cfg, logger)
	if err := filter.Prepare(root); err != nil {
		return err
	}

	watcher, err := watch.New(root, filter, watch.WithDebounce(c.Duration("debounce")), watch.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	svc := analysis.New(analysis.WithConfig(cfg), analysis.WithLogger(logger))
	opts := runOptions(c, root)
	w := c.App.Writer

	rerun := func(ctx context.Context, changed []string) {
		if len(changed) > 0 {
			color.New(color.FgCyan).Fprintf(w, "\n%d changed: %s\n", len(changed), preview(changed, 3))
		}
		start := time.Now()
		result, err := svc.Analyze(ctx, opts)
		if err != nil {
			if ctx.Err() == nil {
				color.New(color.FgRed).Fprintf(w, "Analysis error: %v\n", err)
			}
			return
		}
		printWatchSummary(w, result, time.Since(start))
	}
	watcher.OnChange(rerun)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rerun(ctx, nil)
	color.New(color.FgGreen).Fprintf(w, "Watching %s (Ctrl+C to stop)\n", root)

	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Fprintln(w, "\nStopping watch...")
	return nil
}

func printWatchSummary(w io.Writer, r *analysis.Result, elapsed time.Duration) {
	s := r.Summary
	fmt.Fprintf(w, "%d files, %d unused, %d duplicate patterns, %d cycles, %d broken links (%s)\n",
		s.TotalFiles, s.UnusedFiles, s.DuplicatePatterns, s.Cycles, s.BrokenLinks, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "code health %.2f, maintainability %.2f, redundancy %.2f\n",
		r.Metrics.CodeHealth, r.Metrics.Maintainability, r.Metrics.Redundancy)
}

// preview joins up to n items and counts the rest.
func preview(items []string, n int) string {
	if len(items) <= n {
		return fmt.Sprint(items)
	}
	return fmt.Sprintf("%v and %d more", items[:n], len(items)-n)
}
