package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index status",
	Long:  `Shows the state of the knowledge index and any build in progress.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	status, err := knowledgeService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if status.Building {
		cmd.Println("Build in progress:")
		cmd.Printf("  Files processed: %d\n", status.FilesProcessed)
		cmd.Printf("  Chunks indexed:  %d\n", status.ChunksIndexed)
		if status.ErrorCount > 0 {
			cmd.Printf("  Errors:          %d\n", status.ErrorCount)
		}
	} else {
		cmd.Println("No build in progress.")
	}

	cmd.Printf("Indexed sources: %d\n", status.TotalSources)
	cmd.Printf("Indexed chunks:  %d\n", status.TotalChunks)
	return nil
}
