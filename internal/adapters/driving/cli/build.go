package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driving"
)

var buildForce bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or update the knowledge index",
	Long: `Scans the knowledge directory and indexes new or changed documents.

Unchanged files are detected by checksum and skipped. Files removed
from the directory have their chunks deleted from the graph. Use
--force to re-index everything regardless of checksums.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildForce, "force", "f", false, "re-index all files, ignoring checksums")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	cmd.Println("Building knowledge index...")

	report, err := buildWithProgress(cmd.Context(), cmd, knowledgeService, buildForce)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	cmd.Printf("Scanned %d files: %d processed, %d unchanged, %d removed.\n",
		report.FilesScanned, report.FilesProcessed, report.FilesUnchanged, report.FilesRemoved)
	cmd.Printf("Indexed %d chunks", report.ChunksIndexed)
	if report.ErrorCount > 0 {
		cmd.Printf(" (%d errors)", report.ErrorCount)
	}
	cmd.Println(".")
	return nil
}

// buildWithProgress runs the build while displaying progress updates.
func buildWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	svc driving.KnowledgeService,
	force bool,
) (*driving.BuildReport, error) {
	type result struct {
		report *driving.BuildReport
		err    error
	}
	resCh := make(chan result, 1)
	go func() {
		report, err := svc.BuildIndex(ctx, force)
		resCh <- result{report, err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastChunks := 0
	for {
		select {
		case res := <-resCh:
			if lastChunks > 0 {
				cmd.Println()
			}
			return res.report, res.err
		case <-ticker.C:
			// Best effort, a failed status read never aborts the build
			status, statusErr := svc.Status(ctx)
			if statusErr == nil && status != nil && status.ChunksIndexed > lastChunks {
				cmd.Printf("\rIndexing... %d files, %d chunks",
					status.FilesProcessed, status.ChunksIndexed)
				lastChunks = status.ChunksIndexed
			}
		}
	}
}
