package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()
	if configPath := cmd.String("config"); configPath != "" {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Flags override file values.
	if roots := cmd.Args().Slice(); len(roots) > 0 {
		cfg.Scan.Roots = roots
	}
	if dest := cmd.String("dest"); dest != "" {
		cfg.Scan.Dest = dest
	}
	if cmd.IsSet("workers") {
		cfg.Scan.MaxWorkers = int(cmd.Int("workers"))
	}
	if cmd.Bool("dry-run") {
		cfg.Scan.DryRun = true
	}
	if cmd.Bool("follow-symlinks") {
		cfg.Scan.FollowSymlinks = true
	}
	if cmd.Bool("watch") {
		cfg.Scan.Watch = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "raido",
		Usage:     "Forensic file-retrieval agent: classify, match, copy, and audit files from one or more roots",
		ArgsUsage: "[roots...]",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("RAIDO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Usage:   "Destination directory for copied files and the audit log",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent file-processing workers (I/O bound)",
				Value: 8,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Do not copy, just log decisions",
			},
			&cli.BoolFlag{
				Name:  "follow-symlinks",
				Usage: "Follow symlinked directories during traversal",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running after the sweep and process newly created files",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
