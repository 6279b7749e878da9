package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add a video URL to the acquisition queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimSpace(args[0])
			if url == "" {
				return errors.New("url is required")
			}

			session, err := ctx.openQueueAccess()
			if err != nil {
				return err
			}
			defer session.Close()

			item, created, err := session.Access.Add(cmd.Context(), url)
			if err != nil {
				return err
			}
			if item == nil {
				return errors.New("empty response from queue")
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"item": item, "created": created})
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued as item #%d (%s)\n", item.ID, url)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Already queued as item #%d (%s)\n", item.ID, url)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a confirmation message")
	return cmd
}
