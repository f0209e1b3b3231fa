// Package cli provides the command line interface. Commands are
// registered against the root command in their init functions and
// receive their services through the setters below before Execute
// runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driving"
	"github.com/lorekeep/lorekeep-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by the composition root.
var (
	knowledgeService driving.KnowledgeService
	settingsStore    driven.SettingsStore
	knowledgeDir     string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "lorekeep",
	Short: "Knowledge base indexing and retrieval",
	Long: `lorekeep builds a searchable knowledge graph from local documents.

PDF and Markdown files are chunked, embedded and stored in Neo4j with
a vector index. Queries return the most relevant chunks, each extended
with its sequential neighbour for continuity.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// SetKnowledgeService injects the knowledge service used by the
// build, query, status and watch commands.
func SetKnowledgeService(svc driving.KnowledgeService) {
	knowledgeService = svc
}

// SetSettingsStore injects the settings store used by the configure
// command.
func SetSettingsStore(store driven.SettingsStore) {
	settingsStore = store
}

// SetKnowledgeDir records the configured knowledge directory so the
// watch command can default to it.
func SetKnowledgeDir(dir string) {
	knowledgeDir = dir
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
