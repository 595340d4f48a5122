package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whyCmd = &cobra.Command{
	Use:   "why [query-id]",
	Short: "Replay the frozen result set for a prior query",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhy,
}

func init() {
	whyCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(whyCmd)
}

func runWhy(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}

	q, items, err := retrieverSvc.Why(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("why: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, struct {
			QueryID string `json:"query_id"`
			Results any    `json:"results"`
		}{q.ID, items})
	}

	printResults(cmd, q.ID, items)
	return nil
}
