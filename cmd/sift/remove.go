package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/sift/internal/output"
	"github.com/panbanda/sift/internal/service/analysis"
	"github.com/panbanda/sift/internal/service/removal"
	"github.com/panbanda/sift/internal/vcs"
	"github.com/urfave/cli/v2"
)

func removeCmd() *cli.Command {
	return &cli.Command{
		Name:  "remove",
		Usage: "Remove files a saved report marked safe to delete",
		Description: `Reads a report written by "sift analyze" and deletes every unused file
whose safety is "safe", then the directories left empty. Each file is
copied to the backup directory before anything is deleted; if any copy
fails nothing is removed. A live removal inside a git repository with
uncommitted changes is refused unless --force is given.

Examples:
  sift remove --dry-run                      # Preview using sift-report.json
  sift remove --report out/report.json       # Remove using a specific report
  sift remove --backup-dir /tmp/sift-backup  # Keep backups outside the tree`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"r"},
				Usage:   "Full JSON report written by analyze (default from config)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be removed without touching the tree",
			},
			&cli.StringFlag{
				Name:  "backup-dir",
				Usage: "Backup directory, relative to the analyzed root (default from config)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Remove even when the git working tree has uncommitted changes",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: " + strings.Join(output.Formats(), ", "),
			},
		},
		Action: runRemoveCmd,
	}
}

func runRemoveCmd(c *cli.Context) error {
	cfg, _, err := loadConfig(c, "")
	if err != nil {
		return err
	}

	reportPath := stringFlagOr(c, "report", cfg.Output.Path)
	result, err := analysis.Load(reportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no report at %s; run \"sift analyze\" first", reportPath)
		}
		return err
	}

	candidates := removal.FromResult(result)
	if len(candidates) == 0 {
		color.New(color.FgYellow).Fprintln(c.App.ErrWriter, "Nothing to remove")
		return nil
	}

	if !c.Bool("dry-run") && !c.Bool("force") {
		if err := vcs.RequireClean(result.Root); err != nil {
			if errors.Is(err, vcs.ErrDirtyWorkingDir) {
				return fmt.Errorf("%w; commit or stash first, or pass --force", err)
			}
			return err
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	executor := removal.New(removal.WithLogger(loggerFrom(c)))
	report, err := executor.Remove(ctx, result.Root, candidates, removal.Options{
		DryRun:    c.Bool("dry-run"),
		BackupDir: stringFlagOr(c, "backup-dir", cfg.Removal.BackupDir),
	})
	if err != nil {
		return fmt.Errorf("removal failed: %w", err)
	}

	format := output.ParseFormat(c.String("format"))
	formatter := output.NewWriterFormatter(format, c.App.Writer, !color.NoColor)
	if err := formatter.Output(removalTable(report)); err != nil {
		return err
	}
	if report.BackupPath != "" && !format.IsStructured() {
		color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "Backups in %s\n", report.BackupPath)
	}
	if report.Summary.Errors > 0 {
		return fmt.Errorf("%d paths could not be removed", report.Summary.Errors)
	}
	return nil
}
