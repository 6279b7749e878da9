package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/api"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage staging scratch directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scratch directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			if stagingDir == "" {
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"staging_dir":      "",
						"directories":      []any{},
						"total_size_bytes": 0,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
				return nil
			}

			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list scratch directories: %w", err)
			}

			if jsonOut {
				entries := make([]map[string]any, 0, len(dirs))
				var totalSize int64
				for _, dir := range dirs {
					totalSize += dir.Size
					entries = append(entries, map[string]any{
						"name":       dir.Name,
						"path":       dir.Path,
						"mod_time":   dir.ModTime.UTC().Format(time.RFC3339),
						"size_bytes": dir.Size,
					})
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      entries,
					"total_size_bytes": totalSize,
				})
			}

			if len(dirs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scratch directories found")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)

			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				totalSize += dir.Size
				rows = append(rows, []string{dir.Name, formatDirAge(age), logging.FormatBytes(dir.Size)})
			}

			table := renderTable(
				[]string{"Directory", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			)
			fmt.Fprint(out, table)
			fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), logging.FormatBytes(totalSize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove orphaned scratch directories",
		Long: `Remove scratch directories not associated with any queue item.

By default, only removes directories that no pending or in-flight queue item
references (leftovers from cleared or deleted queue entries). Recently
modified directories are kept because an in-flight download may not have
recorded its artifact path yet.

Use --all to remove every scratch directory regardless of queue state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withQueueStore(func(store *queue.Store) error {
				req := api.CleanStagingRequest{
					StagingDir: cfg.Paths.StagingDir,
					CleanAll:   cleanAll,
				}
				if !cleanAll {
					req.Active = store
				}

				result, err := api.CleanStagingDirectories(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !result.Configured {
					if jsonOut {
						return writeJSON(cmd, map[string]any{"removed": 0, "errors": []any{}})
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
					return nil
				}
				if jsonOut {
					return writeStagingCleanJSON(cmd, result.Cleanup)
				}
				return printStagingCleanResult(cmd, result.Cleanup, result.Scope)
			})
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all scratch directories (including active)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")

	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanResult, label string) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s directories to clean\n", label)
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s directories, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d %s directories\n", len(result.Removed), label)
	return nil
}

func formatDirAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"removed": len(result.Removed),
		"errors":  errs,
	})
}
