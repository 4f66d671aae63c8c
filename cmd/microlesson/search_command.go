package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"microlesson/internal/discovery"
	"microlesson/internal/logging"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var level string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <topic>",
		Short: "Find ranked lesson-source candidates in the video catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(args[0])
			if topic == "" {
				return errors.New("topic is required")
			}

			candidates, err := searchCandidates(ctx, cmd, topic, level)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{"candidates": candidates})
			}

			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No candidates found")
				return nil
			}
			table := renderTable(
				[]string{"#", "Title", "Channel", "Duration", "Views", "Score"},
				buildCandidateRows(candidates),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Audience level hint (e.g. beginner, intermediate)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON")
	return cmd
}

// searchCandidates prefers the daemon's catalog client so API quotas are
// shared, but queries the catalog directly when the daemon is offline.
func searchCandidates(ctx *commandContext, cmd *cobra.Command, topic, level string) ([]discovery.Candidate, error) {
	client, err := ctx.dialClient()
	if err == nil {
		defer client.Close()
		resp, searchErr := client.Search(topic, level)
		if searchErr != nil {
			return nil, searchErr
		}
		return resp.Result.Candidates, nil
	}

	cfg, cfgErr := ctx.ensureConfig()
	if cfgErr != nil {
		return nil, cfgErr
	}
	discoverer, buildErr := discovery.NewDiscoverer(cfg, logging.NewNop())
	if buildErr != nil {
		return nil, buildErr
	}
	return discoverer.Search(cmd.Context(), topic, level)
}
