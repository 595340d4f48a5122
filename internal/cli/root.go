package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/context-cache/ctxc/internal/config"
	"github.com/context-cache/ctxc/internal/core/ports/driven"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
	"github.com/context-cache/ctxc/internal/logger"
)

const version = "0.1.0"

// Package-level service handles, wired lazily by ensureWired before a
// subcommand that needs them runs. Commands that never call ensureWired
// (--help, version) run without building any of them.
var (
	storeSvc        driven.Store
	ingestSvc       driving.IngestService
	retrieverSvc    driving.Retriever
	watcherSvc      driving.Watcher
	schedulerSvc    driving.Scheduler
	crossEncoderSvc driven.CrossEncoder
	cfg             config.Config
)

var dataDir string
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "context-cache",
	Short: "Local-first content cache with hybrid retrieval",
	Long: `context-cache ingests local documents (folders, markdown, PDF,
email and mailbox archives, flattened Notion exports) into a single
embedded database, then serves hybrid dense+sparse retrieval with
reciprocal rank fusion, optional reranking and MMR diversification.

Every query is recorded in a journal so "why" can replay the exact result
set that was returned, for provenance.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "workspace data directory (default ~/.config/context-cache)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	cobra.OnInitialize(func() {
		logger.SetVerbose(verbose)
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
