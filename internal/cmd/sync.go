package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Gii4667/twig/internal/engine"
	"github.com/Gii4667/twig/internal/lock"
	"github.com/Gii4667/twig/internal/logger"
)

var (
	syncDryRun bool
	syncJSON   bool
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: GroupCore,
	Short:   "Reconcile tmux sessions with git worktrees",
	Long: `Run one reconciliation pass: compare the repository's worktrees with
the tmux session table and converge them. Sessions are created for new
worktrees, renamed when a worktree's branch changes, and killed when a
worktree disappears.

Safe to re-run at any time. Individual action failures are reported as
warnings and retried on the next pass; the command fails only when git or
tmux are entirely unreachable, or the state file can be neither read nor
written.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "Print the plan without applying it")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runPass(ctx, syncDryRun, false)
	if err != nil {
		return err
	}

	if syncJSON {
		return printJSON(os.Stdout, report)
	}
	printReport(os.Stdout, report)
	return nil
}

// runPass acquires the invocation lock and executes one reconciliation
// pass. Dry runs skip the lock; they mutate nothing.
func runPass(ctx context.Context, dryRun, killsOnly bool) (*engine.Report, error) {
	e, err := buildEnv(ctx)
	if err != nil {
		return nil, err
	}

	if !dryRun {
		lockPath, err := lock.DefaultPath()
		if err != nil {
			return nil, err
		}
		fl, err := lock.Acquire(lockPath)
		if err != nil {
			return nil, err
		}
		defer lock.Release(fl)
	}

	pass := &engine.Pass{
		Store:     e.store,
		Worktrees: e.git,
		Sessions:  e.tmux,
		Resolver:  e.resolver,
		DryRun:    dryRun,
		KillsOnly: killsOnly,
		OnCreate:  postCreateHook(ctx, e),
	}

	report, err := pass.Run(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("pass complete: %d actions, %d warnings", len(report.Results), len(report.Warnings))
	return report, nil
}
