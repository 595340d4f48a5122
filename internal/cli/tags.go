package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags known to the cache",
	RunE:  runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, _ []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}
	tags, err := storeSvc.ListTags(cmd.Context())
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	if len(tags) == 0 {
		cmd.Println("No tags.")
		return nil
	}
	for _, t := range tags {
		cmd.Printf("%s  %s\n", t.ID, t.Label)
	}
	return nil
}
