package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Gii4667/twig/internal/style"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: GroupDiag,
	Short:   "List worktrees and the session names they resolve to",
	Long: `List the repository's worktrees with branch, HEAD, and the session
name each would get. Unlike status, this reads only git; no mapping or
tmux state is consulted.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}

type worktreeRow struct {
	Path     string `json:"path"`
	Branch   string `json:"branch,omitempty"`
	Head     string `json:"head,omitempty"`
	Session  string `json:"session,omitempty"`
	Detached bool   `json:"detached,omitempty"`
	Locked   bool   `json:"locked,omitempty"`
	Prunable bool   `json:"prunable,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
	NameErr  string `json:"name_error,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}

	worktrees, err := e.git.WorktreeList(ctx)
	if err != nil {
		return fmt.Errorf("listing worktrees: %w", err)
	}

	desired, nameErrs := e.resolver.ResolveAll(worktrees)
	nameErrFor := make(map[string]string, len(nameErrs))
	for _, ne := range nameErrs {
		nameErrFor[ne.Path] = ne.Reason
	}

	rows := make([]worktreeRow, 0, len(worktrees))
	for _, wt := range worktrees {
		if wt.Bare {
			continue
		}
		rows = append(rows, worktreeRow{
			Path:     wt.Path,
			Branch:   wt.Branch,
			Head:     shortHead(wt.Head),
			Session:  desired[wt.Path],
			Detached: wt.Detached,
			Locked:   wt.Locked,
			Prunable: wt.Prunable,
			Dirty:    wt.Dirty,
			NameErr:  nameErrFor[wt.Path],
		})
	}

	if listJSON {
		return printJSON(os.Stdout, rows)
	}

	if len(rows) == 0 {
		fmt.Println("No worktrees.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tBRANCH\tHEAD\tSESSION")
	for _, row := range rows {
		branch := row.Branch
		if row.Detached {
			branch = render(style.Dim, "(detached)")
		}
		session := row.Session
		if session == "" {
			session = render(style.Warning, "(unresolvable: "+row.NameErr+")")
		}
		notes := ""
		if row.Locked {
			notes = " [locked]"
		}
		if row.Prunable {
			notes += " [prunable]"
		}
		if row.Dirty {
			notes += " [dirty]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\n", row.Path, branch, row.Head, session, notes)
	}
	return w.Flush()
}

func shortHead(head string) string {
	if len(head) > 8 {
		return head[:8]
	}
	return head
}
