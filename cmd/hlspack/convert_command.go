package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hlspack/internal/config"
	"hlspack/internal/deps"
	"hlspack/internal/logging"
	"hlspack/internal/pipeline"
	"hlspack/internal/progress"
	"hlspack/internal/queue"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [dir]",
		Short: "Convert every Matroska file in a directory to an HLS rendition tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dir, err := resolveInputDir(args)
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			if err := deps.Preflight(); err != nil {
				return err
			}
			nvenc := deps.ResolveHWAccel(cmd.Context(), cfg.Encoding.HWAccel)
			logger.Info("encoder selected",
				logging.Bool("nvenc", nvenc),
				logging.String("hwaccel_mode", cfg.Encoding.HWAccel),
			)

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				registry := progress.NewRegistry()
				converter := pipeline.NewConverter(cfg, store, registry, nvenc, logger)
				batch := pipeline.NewBatch(cfg, store, converter, logger)

				summary, err := batch.Run(cmd.Context(), dir)
				printSummary(cmd, summary)
				return err
			})
		},
	}
}

func resolveInputDir(args []string) (string, error) {
	if len(args) == 0 {
		dir, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return dir, nil
	}
	dir, err := config.ExpandPath(strings.TrimSpace(args[0]))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("stat input dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return dir, nil
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d file(s) discovered, %d converted, %d failed\n",
		summary.RunID, summary.Discovered, summary.Succeeded, summary.Failed)
}
