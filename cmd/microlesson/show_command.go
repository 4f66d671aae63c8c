package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"microlesson/internal/api"
	"microlesson/internal/ipc"
	"microlesson/internal/queue"
	"microlesson/internal/services"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <videoID>",
		Short: "Show one video's pipeline progress and segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid video id %q", args[0])
			}

			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var status *api.VideoStatus
				if client != nil {
					resp, err := client.VideoStatus(id)
					if err != nil {
						return err
					}
					status = &resp.Status
				} else {
					svc := api.NewVideoService(store, nil, nil, nil)
					resolved, err := svc.Status(cmd.Context(), id)
					if err != nil {
						if errors.Is(err, services.ErrNotFound) {
							return fmt.Errorf("video %d not found", id)
						}
						return err
					}
					status = resolved
				}

				if jsonOutput {
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				for _, line := range renderSectionHeader(fmt.Sprintf("Video #%d", status.Video.ID), colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintf(out, "  Title:    %s\n", status.Video.Title)
				fmt.Fprintf(out, "  Status:   %s\n", formatStatusLabel(status.Status))
				fmt.Fprintf(out, "  Progress: %.0f%%\n", status.ProgressPercent)
				if stage := strings.TrimSpace(status.Video.Progress.Stage); stage != "" {
					fmt.Fprintf(out, "  Stage:    %s\n", stage)
				}
				if subject := strings.TrimSpace(status.Video.SubjectArea); subject != "" {
					fmt.Fprintf(out, "  Subject:  %s\n", subject)
				}
				if status.Video.DurationSeconds > 0 {
					fmt.Fprintf(out, "  Duration: %.0fs\n", status.Video.DurationSeconds)
				}
				if errMsg := strings.TrimSpace(status.Error); errMsg != "" {
					fmt.Fprintf(out, "  Error:    %s\n", errMsg)
				}

				if len(status.Segments) == 0 {
					fmt.Fprintln(out, "No segments yet")
					return nil
				}

				fmt.Fprintln(out)
				table := renderTable(
					[]string{"#", "Phase", "Window", "Status", "Anchored", "Confidence"},
					buildSegmentRows(status.Segments),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}
