package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gii4667/twig/internal/engine"
	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/style"
	"github.com/Gii4667/twig/internal/tmux"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"stat"},
	GroupID: GroupDiag,
	Short:   "Show the worktree-to-session mapping",
	Long: `Display every mapping entry together with its current state:

  live     worktree and session both present
  lost     worktree present but its session is gone (sync will recreate)
  orphan   worktree gone but its session persists (sync will kill)
  removed  both gone (sync will drop the entry)

Worktrees with no entry yet are listed as unmapped.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}

// entryStatus is one row of status output.
type entryStatus struct {
	Worktree string            `json:"worktree"`
	Branch   string            `json:"branch,omitempty"`
	Session  string            `json:"session,omitempty"`
	State    engine.EntryState `json:"state"`
	Attached bool              `json:"attached,omitempty"`
	Locked   bool              `json:"locked,omitempty"`
	Dirty    bool              `json:"dirty,omitempty"`
	LastSeen time.Time         `json:"last_seen,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}

	mapping, err := e.store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", render(style.Warning, "warning:"), err)
	}
	worktrees, err := e.git.WorktreeList(ctx)
	if err != nil {
		return fmt.Errorf("listing worktrees: %w", err)
	}
	sessions, err := e.tmux.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	sset := tmux.NewSessionSet(sessions)
	present := make(map[string]git.Worktree, len(worktrees))
	for _, wt := range worktrees {
		present[wt.Path] = wt
	}

	var rows []entryStatus
	for path, entry := range mapping.Entries {
		wt, here := present[path]
		row := entryStatus{
			Worktree: path,
			Branch:   entry.Branch,
			Session:  entry.SessionName,
			State:    engine.StateOf(here, sset.Has(entry.SessionName)),
			Locked:   entry.Locked,
			Dirty:    wt.Dirty,
			LastSeen: entry.LastSeen,
		}
		if s, ok := sset.Get(entry.SessionName); ok {
			row.Attached = s.Attached
		}
		rows = append(rows, row)
	}
	for _, wt := range worktrees {
		if _, mapped := mapping.Entries[wt.Path]; !mapped {
			rows = append(rows, entryStatus{
				Worktree: wt.Path,
				Branch:   wt.Branch,
				State:    "unmapped",
				Locked:   wt.Locked,
				Dirty:    wt.Dirty,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Worktree < rows[j].Worktree })

	if statusJSON {
		return printJSON(os.Stdout, rows)
	}

	if len(rows) == 0 {
		fmt.Println("No worktrees and no mapping entries.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WORKTREE\tBRANCH\tSESSION\tSTATE")
	for _, row := range rows {
		session := row.Session
		if session == "" {
			session = "-"
		}
		stateLabel := string(row.State)
		switch row.State {
		case engine.StateLive:
			if row.Attached {
				stateLabel = "live (attached)"
			}
		case engine.StateLost, engine.StateOrphan:
			stateLabel = render(style.Warning, stateLabel)
		}
		if row.Locked {
			stateLabel += " [locked]"
		}
		if row.Dirty {
			stateLabel += " [dirty]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Worktree, row.Branch, session, stateLabel)
	}
	return w.Flush()
}
