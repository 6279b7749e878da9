package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/acquiring"
	"reel/internal/acquisition"
	"reel/internal/logging"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a URL's audio track without the daemon",
		Long: "Fetch runs the full acquisition waterfall synchronously and prints the " +
			"resulting artifact path. Progress is logged to stderr so the path stays " +
			"machine-readable on stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if url == "" {
				return errors.New("url is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:            cfg.Logging.Level,
				Format:           "console",
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			downloader := acquisition.NewDownloader(cfg, logger, acquiring.DefaultDeps(cfg, logger))
			artifact, err := downloader.DownloadAudio(cmd.Context(), url)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"path":            artifact.FilePath,
					"title":           artifact.Title,
					"method":          artifact.Method,
					"durationSeconds": artifact.DurationSeconds,
					"canonical":       artifact.Canonical,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), artifact.FilePath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of the artifact path")
	return cmd
}
