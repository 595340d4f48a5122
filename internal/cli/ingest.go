package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/core/domain"
)

var ingestPriority string

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-id] [paths...]",
	Short: "Ingest files into a source",
	Long: `Ingest loads, chunks, embeds and indexes the given files under an
existing source. With no paths, the source's full scope is walked and
re-synced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPriority, "priority", "normal", "scheduler priority (low, normal, high)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}

	sourceID := args[0]
	paths := args[1:]
	priority := domain.ParsePriority(ingestPriority)

	var job domain.IngestJob
	var err error
	if len(paths) > 0 {
		job, err = ingestSvc.IngestPaths(cmd.Context(), sourceID, paths, priority)
	} else {
		job, err = ingestSvc.IngestSource(cmd.Context(), sourceID, priority)
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	cmd.Printf("Job %s: %s\n", job.ID, job.Status)
	cmd.Printf("  added=%d skipped=%d chunks=%d duration=%dms\n",
		job.Stats.DocumentsAdded, job.Stats.DocumentsSkipped, job.Stats.Chunks, job.Stats.DurationMS)
	for _, e := range job.Stats.Errors {
		cmd.Printf("  error: %s\n", e)
	}
	return nil
}
