package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"microlesson/internal/api"
	"microlesson/internal/ingestion"
	"microlesson/internal/ipc"
	"microlesson/internal/logging"
	"microlesson/internal/queue"
)

var uploadExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".mov":  {},
	".webm": {},
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string
	var title string
	var subjectArea string

	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Admit a source video into the pipeline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = strings.TrimSpace(args[0])
			}
			url := strings.TrimSpace(sourceURL)

			if path == "" && url == "" {
				return errors.New("provide a local file path or --url")
			}
			if path != "" && url != "" {
				return errors.New("provide either a file path or --url, not both")
			}

			if path != "" {
				absPath, err := filepath.Abs(path)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("file does not exist: %s", absPath)
					}
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", absPath)
				}
				ext := strings.ToLower(filepath.Ext(info.Name()))
				if _, ok := uploadExtensions[ext]; !ok {
					return fmt.Errorf("unsupported file extension %q", ext)
				}
				path = absPath
			}

			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				if client != nil {
					resp, err := client.Ingest(ipc.IngestRequest{
						Path:        path,
						URL:         url,
						Title:       title,
						SubjectArea: subjectArea,
					})
					if err != nil {
						return err
					}
					printIngestReceipt(out, resp.Receipt)
					return nil
				}

				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				ingestor := ingestion.NewIngestor(cfg, store, logging.NewNop())
				svc := api.NewVideoService(store, ingestor, nil, nil)
				receipt, err := svc.Ingest(cmd.Context(), api.IngestRequest{
					Path:        path,
					URL:         url,
					Title:       title,
					SubjectArea: subjectArea,
				})
				if err != nil {
					return err
				}
				printIngestReceipt(out, *receipt)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Remote video URL to ingest")
	cmd.Flags().StringVar(&title, "title", "", "Title override for the lesson source")
	cmd.Flags().StringVar(&subjectArea, "subject", "", "Subject area hint for analysis")
	return cmd
}

func printIngestReceipt(out io.Writer, receipt api.IngestResponse) {
	fmt.Fprintf(out, "Queued video #%d (%s)\n", receipt.VideoID, receipt.Title)
	if receipt.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration: %.0fs\n", receipt.DurationSeconds)
	}
	if strings.TrimSpace(receipt.EstimatedCompletion) != "" {
		fmt.Fprintf(out, "Estimated completion: %s\n", receipt.EstimatedCompletion)
	}
}
