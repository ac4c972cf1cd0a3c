package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	pruneDryRun bool
	pruneJSON   bool
)

var pruneCmd = &cobra.Command{
	Use:     "prune",
	GroupID: GroupCore,
	Short:   "Kill sessions whose worktrees are gone",
	Long: `Run the teardown half of a reconciliation pass: kill mapped sessions
whose worktrees no longer exist and drop their entries. No sessions are
created or renamed. Locked worktrees keep their sessions.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().BoolVarP(&pruneDryRun, "dry-run", "n", false, "Print the plan without applying it")
	pruneCmd.Flags().BoolVar(&pruneJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runPass(ctx, pruneDryRun, true)
	if err != nil {
		return err
	}

	if pruneJSON {
		return printJSON(os.Stdout, report)
	}
	printReport(os.Stdout, report)
	return nil
}
