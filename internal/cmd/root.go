// Package cmd implements the twig command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Gii4667/twig/internal/logger"
)

// Command groups for help output.
const (
	GroupCore = "core"
	GroupDiag = "diag"
)

var (
	flagVerbose   bool
	flagConfig    string
	flagStateFile string
	flagRepo      string
)

var rootCmd = &cobra.Command{
	Use:   "twig",
	Short: "Keep tmux sessions in sync with git worktrees",
	Long: `twig maintains a one-to-one mapping between git worktrees and tmux
sessions: each worktree gets a session named after its branch, created,
renamed, and torn down as worktrees appear, move, or disappear.

Every command operates on the repository containing the current directory
(or --repo). Reconciliation is idempotent and safe to re-run at any time,
including after sessions or worktrees were changed outside twig.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDebug(flagVerbose)
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupCore, Title: "Synchronization:"},
		&cobra.Group{ID: GroupDiag, Title: "Inspection:"},
	)
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/twig/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagStateFile, "state", "", "State file (default per-repo under $XDG_STATE_HOME/twig)")
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", "Repository directory (default current directory)")
}

// Execute runs the root command. Exits non-zero only on fatal errors;
// per-action failures are reported as warnings by the individual commands.
func Execute(version, commit string) {
	rootCmd.Version = version
	if commit != "" && commit != "none" {
		rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
	}
	defer logger.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
