package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/core/domain"
)

var (
	queryKFinal    int
	queryRerank    bool
	queryNoHybrid  bool
	queryMMRLambda float64
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a hybrid retrieval query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryKFinal, "k", "k", 0, "number of results to return (default from config)")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "enable cross-encoder reranking")
	queryCmd.Flags().BoolVar(&queryNoHybrid, "no-hybrid", false, "dense-only, skip the sparse full-text leg")
	queryCmd.Flags().Float64Var(&queryMMRLambda, "mmr-lambda", 0, "MMR relevance/diversity trade-off in [0,1] (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}

	opts := domain.DefaultRetrieveOptions()
	if queryKFinal > 0 {
		opts.KFinal = queryKFinal
	}
	opts.UseRerank = queryRerank
	opts.UseHybrid = !queryNoHybrid
	if queryMMRLambda > 0 {
		opts.MMRLambda = queryMMRLambda
	}

	q, items, err := retrieverSvc.Query(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, struct {
			QueryID string               `json:"query_id"`
			Results []domain.ResultItem  `json:"results"`
		}{q.ID, items})
	}

	printResults(cmd, q.ID, items)
	return nil
}

func printResults(cmd *cobra.Command, queryID string, items []domain.ResultItem) {
	cmd.Printf("query_id: %s\n\n", queryID)
	if len(items) == 0 {
		cmd.Println("No results.")
		return
	}
	for _, it := range items {
		cmd.Printf("[%d] %s (score %.4f)\n", it.Rank, it.Title, it.Score)
		if it.Provenance.Path != "" {
			loc := it.Provenance.Path
			if it.Provenance.Section != "" {
				loc += " § " + it.Provenance.Section
			}
			cmd.Printf("    %s\n", loc)
		}
		if it.Snippet != "" {
			cmd.Printf("    %s\n", it.Snippet)
		}
		cmd.Println()
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
