package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/panbanda/sift/internal/cache"
	"github.com/panbanda/sift/internal/output"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	pathFlag := &cli.StringFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Value:   ".",
		Usage:   "Root directory whose cache is used",
	}
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the facts cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show the number and size of cached entries",
				Flags: []cli.Flag{
					pathFlag,
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (default from config)",
					},
				},
				Action: runCacheStatsCmd,
			},
			{
				Name:      "clear",
				Usage:     "Remove cached facts",
				ArgsUsage: "[file...]",
				Description: `Removes every cached entry, or only the entries for the given files.

Examples:
  sift cache clear                  # Remove the whole cache directory
  sift cache clear src/app.ts       # Forget one file`,
				Flags:  []cli.Flag{pathFlag},
				Action: runCacheClearCmd,
			},
		},
	}
}

// openFactsCache opens the cache configured for --path. ok is false when
// no cache directory exists yet.
func openFactsCache(c *cli.Context) (fc *cache.Cache, dir string, ok bool, err error) {
	root, err := filepath.Abs(c.String("path"))
	if err != nil {
		return nil, "", false, fmt.Errorf("invalid path: %w", err)
	}
	cfg, _, err := loadConfig(c, root)
	if err != nil {
		return nil, "", false, err
	}
	dir = cfg.CacheDir(root)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, dir, false, nil
	}
	fc, err = cache.New(dir, time.Duration(cfg.Cache.TTL)*time.Hour, true)
	if err != nil {
		return nil, dir, false, err
	}
	return fc, dir, true, nil
}

// cacheView is the structured output of cache stats.
type cacheView struct {
	Dir       string `json:"dir" toon:"dir"`
	Entries   int    `json:"entries" toon:"entries"`
	TotalSize int64  `json:"totalSize" toon:"totalSize"`
}

func runCacheStatsCmd(c *cli.Context) error {
	fc, dir, ok, err := openFactsCache(c)
	if err != nil {
		return err
	}
	stats := &cache.Stats{}
	if ok {
		if stats, err = fc.GetStats(); err != nil {
			return err
		}
	}

	view := cacheView{Dir: dir, Entries: stats.Entries, TotalSize: stats.TotalSize}
	table := output.NewTable("Facts Cache", []string{"Metric", "Value"}, [][]string{
		{"Directory", dir},
		{"Entries", fmt.Sprint(stats.Entries)},
		{"Size", humanize.Bytes(uint64(stats.TotalSize))},
	}, nil, view)
	format := output.ParseFormat(c.String("format"))
	return output.NewWriterFormatter(format, c.App.Writer, !color.NoColor).Output(table)
}

func runCacheClearCmd(c *cli.Context) error {
	fc, dir, ok, err := openFactsCache(c)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(c.App.Writer, "No cache at %s\n", dir)
		return nil
	}

	if c.Args().Len() == 0 {
		if err := fc.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		color.New(color.FgGreen).Fprintf(c.App.Writer, "Cleared %s\n", dir)
		return nil
	}
	for _, file := range c.Args().Slice() {
		rel := filepath.ToSlash(filepath.Clean(file))
		if err := fc.Invalidate(rel); err != nil {
			return fmt.Errorf("invalidate %s: %w", rel, err)
		}
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Forgot %d cached files\n", c.Args().Len())
	return nil
}
