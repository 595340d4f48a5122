package cli

import (
	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/cli/tui"
	"github.com/context-cache/ctxc/internal/core/domain"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive query browser",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if err := ensureWired(cmd.Context()); err != nil {
		return err
	}

	app := tui.NewApp(retrieverSvc, domain.DefaultRetrieveOptions()).WithContext(cmd.Context())
	return app.Run()
}
