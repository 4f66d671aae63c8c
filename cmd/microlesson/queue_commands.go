package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"microlesson/internal/api"
	"microlesson/internal/ipc"
	"microlesson/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the video queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueHealthSubcommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				stringStats := make(map[string]int)

				if client != nil {
					status, err := client.Status()
					if err != nil {
						return err
					}
					for name, count := range status.QueueStats {
						stringStats[name] = count
					}
				} else {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					for status, count := range stats {
						stringStats[string(status)] = count
					}
				}

				rows := buildQueueStatusRows(stringStats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}

			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var videos []api.Video
				if client != nil {
					resp, err := client.VideoList(listStatuses)
					if err != nil {
						return err
					}
					videos = resp.Videos
				} else {
					records, err := store.List(cmd.Context(), statuses...)
					if err != nil {
						return err
					}
					videos = make([]api.Video, 0, len(records))
					for _, record := range records {
						videos = append(videos, api.FromVideo(record))
					}
				}

				if len(videos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Created"},
					buildVideoListRows(videos),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearForce bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queued videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if clearForce {
					fmt.Fprintln(out, "Clearing queue without confirmation (--force)")
				}

				var removed int64
				var err error
				switch {
				case clearCompleted:
					if client != nil {
						var resp *ipc.QueueClearCompletedResponse
						resp, err = client.QueueClearCompleted()
						if err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearCompleted(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed videos\n", removed)
				case clearFailed:
					if client != nil {
						var resp *ipc.QueueClearFailedResponse
						resp, err = client.QueueClearFailed()
						if err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearFailed(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed videos\n", removed)
				default:
					if client != nil {
						var resp *ipc.QueueClearResponse
						resp, err = client.QueueClear()
						if err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.Clear(cmd.Context())
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queued videos\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed videos")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed videos")
	cmd.Flags().BoolVar(&clearForce, "force", false, "No-op flag for compatibility; removal always proceeds")
	return cmd
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				if client != nil {
					resp, err := client.QueueClearFailed()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed videos\n", resp.Removed)
				} else {
					removed, err := store.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed videos\n", removed)
				}
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Roll in-flight videos back to their last stable stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				if client != nil {
					resp, err := client.QueueReset()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reset %d videos\n", resp.Updated)
				} else {
					updated, err := store.ResetStuckProcessing(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Reset %d videos\n", updated)
				}
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [videoID...]",
		Short: "Retry failed videos",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid video id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					if len(ids) == 0 {
						resp, err := client.QueueRetry(nil)
						if err != nil {
							return err
						}
						fmt.Fprintf(out, "Retried %d failed videos\n", resp.Updated)
						return nil
					}

					resp, err := client.VideoList(nil)
					if err != nil {
						return err
					}
					videosByID := make(map[int64]ipc.Video, len(resp.Videos))
					for _, video := range resp.Videos {
						videosByID[video.ID] = video
					}

					for _, id := range ids {
						video, ok := videosByID[id]
						if !ok {
							fmt.Fprintf(out, "Video %d not found\n", id)
							continue
						}
						if video.Status != string(queue.StatusFailed) {
							fmt.Fprintf(out, "Video %d is not in failed state\n", id)
							continue
						}
						retryResp, retryErr := client.QueueRetry([]int64{id})
						if retryErr != nil {
							return retryErr
						}
						if retryResp.Updated > 0 {
							fmt.Fprintf(out, "Video %d reset for retry\n", id)
						} else {
							fmt.Fprintf(out, "Video %d is not in failed state\n", id)
						}
					}
					return nil
				}

				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed videos\n", updated)
					return nil
				}

				videos, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				videosByID := make(map[int64]*queue.Video, len(videos))
				for _, video := range videos {
					videosByID[video.ID] = video
				}

				for _, id := range ids {
					video, ok := videosByID[id]
					if !ok {
						fmt.Fprintf(out, "Video %d not found\n", id)
						continue
					}
					if video.Status != queue.StatusFailed {
						fmt.Fprintf(out, "Video %d is not in failed state\n", id)
						continue
					}
					updated, err := store.RetryFailed(cmd.Context(), id)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Video %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Video %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthSubcommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var health queue.HealthSummary
				if client != nil {
					resp, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = queue.HealthSummary{
						Total:      resp.Total,
						Pending:    resp.Pending,
						Processing: resp.Processing,
						Failed:     resp.Failed,
						Completed:  resp.Completed,
					}
				} else {
					summary, err := store.Health(cmd.Context())
					if err != nil {
						return err
					}
					health = summary
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Pending,
					health.Processing,
					health.Failed,
					health.Completed,
				)
				return nil
			})
		},
	}
}
