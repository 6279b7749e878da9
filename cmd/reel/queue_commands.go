package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reel/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueStopCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthSubcommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			stats, err := session.Access.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				if stats == nil {
					stats = map[string]int{}
				}
				return writeJSON(cmd, stats)
			}

			rows := buildQueueStatusRows(stats)
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			items, err := session.Access.List(cmd.Context(), listStatuses)
			if err != nil {
				return err
			}
			if jsonOut {
				if items == nil {
					items = []api.QueueItem{}
				}
				return writeJSON(cmd, api.SortQueueItemsNewestFirst(items))
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			table := renderTable(
				[]string{"ID", "Title", "Status", "Method", "Created"},
				buildQueueListRows(items),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <itemID>",
		Short: "Show details for a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			item, err := session.Access.Describe(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			if item == nil {
				if jsonOut {
					return writeJSON(cmd, map[string]any{"error": "not_found"})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Item %d not found\n", ids[0])
				return nil
			}
			if jsonOut {
				return writeJSON(cmd, item)
			}
			for _, line := range buildQueueItemDetailLines(*item) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of formatted output")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearAll bool
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}

			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			if clearForce {
				fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
			}

			var removed int64
			switch {
			case clearCompleted:
				removed, err = session.Access.ClearCompleted(cmd.Context())
			case clearFailed:
				removed, err = session.Access.ClearFailed(cmd.Context())
			default:
				removed, err = session.Access.ClearAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d %s\n", removed, bulkClearLabel(clearAll, clearCompleted, clearFailed))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every queue item (default when no filter is given)")
	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed items")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			removed, err := session.Access.ClearFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed items\n", removed)
			return nil
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			updated, err := session.Access.ResetStuck(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", updated)
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			if len(ids) == 0 {
				updated, err := session.Access.RetryAll(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"updated": updated})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed items\n", updated)
				return nil
			}

			result, err := api.RetryFailedItemsByID(cmd.Context(), session.Access, ids)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeQueueRetryResultJSON(cmd, result)
			}
			printQueueRetryResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of per-item messages")
	return cmd
}

func newQueueStopCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stop <itemID...>",
		Short: "Stop queue items and mark them failed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			result, err := api.StopItemsByID(cmd.Context(), session.Access, ids)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeQueueStopResultJSON(cmd, result)
			}
			printQueueStopResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of per-item messages")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "remove <itemID...>",
		Short: "Remove individual queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			result, err := api.RemoveItemsByID(cmd.Context(), session.Access, ids)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeQueueRemoveResultJSON(cmd, result)
			}
			printQueueRemoveResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of per-item messages")
	return cmd
}

func newQueueHealthSubcommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			health, err := session.Access.Health(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]int{
					"total":      health.Total,
					"pending":    health.Pending,
					"processing": health.Processing,
					"failed":     health.Failed,
					"completed":  health.Completed,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
				health.Total,
				health.Pending,
				health.Processing,
				health.Failed,
				health.Completed,
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of formatted output")
	return cmd
}
