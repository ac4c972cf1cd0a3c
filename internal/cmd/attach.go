package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/logger"
)

var attachCmd = &cobra.Command{
	Use:     "attach [branch|path]",
	Aliases: []string{"a"},
	GroupID: GroupCore,
	Short:   "Attach to the session for a worktree",
	Long: `Attach to the tmux session belonging to a worktree, identified by
branch name, path, or path basename. With no argument the worktree
containing the current directory is used.

If the session does not exist yet, a sync pass runs first to create it.
Inside tmux the client switches instead of nesting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}

	worktrees, err := e.git.WorktreeList(ctx)
	if err != nil {
		return fmt.Errorf("listing worktrees: %w", err)
	}

	var target *git.Worktree
	if len(args) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = worktreeContaining(worktrees, cwd)
		if target == nil {
			return fmt.Errorf("current directory is not inside a worktree")
		}
	} else {
		target = matchWorktree(worktrees, args[0])
		if target == nil {
			return fmt.Errorf("no worktree matches %q", args[0])
		}
	}

	mapping, err := e.store.Load()
	if err != nil {
		logger.Warn("state load: %v", err)
	}
	session := ""
	if entry, ok := mapping.Entries[target.Path]; ok {
		session = entry.SessionName
	}

	live := false
	if session != "" {
		live, err = e.tmux.HasSession(ctx, session)
		if err != nil {
			return err
		}
	}
	if !live {
		report, err := runPass(ctx, false, false)
		if err != nil {
			return err
		}
		entry, ok := report.Mapping.Entries[target.Path]
		if !ok {
			return fmt.Errorf("no session could be created for %s", target.Path)
		}
		session = entry.SessionName
	}

	logger.Debug("attaching to %s for %s", session, target.Path)
	// Restore default signal handling before handing the terminal to tmux.
	stop()
	return e.tmux.AttachSession(session)
}

// worktreeContaining returns the worktree whose path contains dir, deepest
// match first.
func worktreeContaining(worktrees []git.Worktree, dir string) *git.Worktree {
	var best *git.Worktree
	for i := range worktrees {
		wt := &worktrees[i]
		if wt.Bare {
			continue
		}
		if dir == wt.Path || strings.HasPrefix(dir, wt.Path+string(filepath.Separator)) {
			if best == nil || len(wt.Path) > len(best.Path) {
				best = wt
			}
		}
	}
	return best
}

// matchWorktree resolves a user-supplied name against branch, full path,
// then path basename, in that order.
func matchWorktree(worktrees []git.Worktree, name string) *git.Worktree {
	abs, _ := filepath.Abs(name)
	for i := range worktrees {
		if worktrees[i].Branch == name {
			return &worktrees[i]
		}
	}
	for i := range worktrees {
		if worktrees[i].Path == name || worktrees[i].Path == abs {
			return &worktrees[i]
		}
	}
	for i := range worktrees {
		if filepath.Base(worktrees[i].Path) == name {
			return &worktrees[i]
		}
	}
	return nil
}
