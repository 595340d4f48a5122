package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/core/domain"
)

var (
	sourceKind    string
	sourceLabel   string
	sourceInclude []string
	sourceExclude []string
)

var sourceCmd = &cobra.Command{
	Use:     "source",
	Aliases: []string{"sources"},
	Short:   "Manage configured sources",
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourceList,
}

var sourceAddCmd = &cobra.Command{
	Use:   "add [uri]",
	Short: "Add a source to watch and ingest",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceAdd,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove [source-id]",
	Short: "Remove a configured source",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

func init() {
	sourceAddCmd.Flags().StringVar(&sourceKind, "kind", string(domain.SourceKindFolder), "source kind (folder, mbox, eml, markdown, notion_export, other)")
	sourceAddCmd.Flags().StringVar(&sourceLabel, "label", "", "human-readable label")
	sourceAddCmd.Flags().StringSliceVar(&sourceInclude, "include", nil, "include glob patterns")
	sourceAddCmd.Flags().StringSliceVar(&sourceExclude, "exclude", nil, "exclude glob patterns")

	sourceCmd.AddCommand(sourceListCmd)
	sourceCmd.AddCommand(sourceAddCmd)
	sourceCmd.AddCommand(sourceRemoveCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}
	sources, err := storeSvc.ListSources(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}
	for _, s := range sources {
		label := s.Label
		if label == "" {
			label = s.URI
		}
		cmd.Printf("%s  [%s]  %s\n", s.ID, s.Kind, label)
	}
	return nil
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}

	kind := domain.SourceKind(sourceKind)
	if !kind.Valid() {
		return fmt.Errorf("unsupported source kind: %s", sourceKind)
	}

	now := time.Now().UTC()
	src := domain.Source{
		ID:          uuid.New().String(),
		Kind:        kind,
		URI:         args[0],
		Label:       sourceLabel,
		IncludeGlob: sourceInclude,
		ExcludeGlob: sourceExclude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := storeSvc.UpsertSource(cmd.Context(), src); err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	cmd.Printf("Added source %s (%s)\n", src.ID, src.URI)
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}
	if err := storeSvc.DeleteSource(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	cmd.Printf("Removed source %s\n", args[0])
	return nil
}
