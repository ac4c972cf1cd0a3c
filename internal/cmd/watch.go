package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Gii4667/twig/internal/constants"
	"github.com/Gii4667/twig/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: GroupCore,
	Short:   "Continuously sync as worktrees change",
	Long: `Run an initial sync, then watch the repository's worktree metadata and
re-run a pass whenever worktrees are added or removed. Bursts of
filesystem events are coalesced into a single pass.

Sessions killed or renamed outside twig are only picked up by these
passes; run sync manually to force one. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// git materializes linked worktrees under <common-dir>/worktrees.
	// Watch the common dir itself as well so we notice the subdirectory
	// being created when the first worktree appears.
	if err := watcher.Add(e.repoKey); err != nil {
		return fmt.Errorf("watching %s: %w", e.repoKey, err)
	}
	worktreesDir := filepath.Join(e.repoKey, "worktrees")
	if _, err := os.Stat(worktreesDir); err == nil {
		if err := watcher.Add(worktreesDir); err != nil {
			return fmt.Errorf("watching %s: %w", worktreesDir, err)
		}
	}

	doPass := func() {
		report, err := runPass(ctx, false, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		printReport(os.Stdout, report)
	}

	doPass()
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", worktreesDir)

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, worktreesDir) {
				continue
			}
			logger.Debug("fs event: %s", event)
			if event.Op.Has(fsnotify.Create) && event.Name == worktreesDir {
				if err := watcher.Add(worktreesDir); err != nil {
					logger.Warn("watching %s: %v", worktreesDir, err)
				}
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(constants.WatchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)

		case <-pending:
			doPass()
		}
	}
}

// relevantEvent filters out the common-dir churn (index, refs, FETCH_HEAD)
// that has nothing to do with worktrees.
func relevantEvent(event fsnotify.Event, worktreesDir string) bool {
	if event.Name == worktreesDir {
		return true
	}
	return filepath.Dir(event.Name) == worktreesDir
}
