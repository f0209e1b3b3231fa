package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/logger"
)

var (
	watchDir      string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the knowledge directory and rebuild on change",
	Long: `Watches the knowledge directory for document changes and rebuilds
the index automatically. Rapid bursts of filesystem events trigger a
single rebuild after a quiet period.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch (default: configured knowledge directory)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a rebuild")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	dir := watchDir
	if dir == "" {
		dir = knowledgeDir
	}
	if dir == "" {
		return errors.New("no knowledge directory configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, dir); err != nil {
		return err
	}

	// Initial build brings the index up to date before watching.
	cmd.Printf("Watching %s\n", dir)
	if _, err := knowledgeService.BuildIndex(cmd.Context(), false); err != nil {
		logger.Warn("initial build failed: %v", err)
	}

	// The timer is the debounce: every relevant event resets it, so
	// the rebuild fires one quiet period after the last event.
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if err := watchTree(watcher, event.Name); err != nil {
					logger.Debug("watch %s: %v", event.Name, err)
				}
			}
			logger.Debug("change detected: %s", event.Name)
			debounce.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logger.Warn("watcher error: %v", err)

		case <-debounce.C:
			cmd.Println("Change detected, rebuilding...")
			report, err := knowledgeService.BuildIndex(ctx, false)
			switch {
			case errors.Is(err, domain.ErrBuildInProgress):
				debounce.Reset(watchDebounce)
			case err != nil:
				logger.Warn("rebuild failed: %v", err)
			default:
				cmd.Printf("Rebuilt: %d processed, %d removed, %d chunks.\n",
					report.FilesProcessed, report.FilesRemoved, report.ChunksIndexed)
			}
		}
	}
}

// watchTree registers path and every directory below it. fsnotify
// watches are not recursive.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
