package engine

import (
	"context"
	"fmt"

	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/logger"
	"github.com/Gii4667/twig/internal/naming"
	"github.com/Gii4667/twig/internal/state"
	"github.com/Gii4667/twig/internal/tmux"
)

// WorktreeAdapter is the read-only worktree inventory boundary.
// *git.Git satisfies it.
type WorktreeAdapter interface {
	WorktreeList(ctx context.Context) ([]git.Worktree, error)
}

// SessionAdapter is the full session inventory boundary: one listing plus
// the mutations. *tmux.Tmux satisfies it.
type SessionAdapter interface {
	ListSessions(ctx context.Context) ([]tmux.Session, error)
	SessionMutator
}

// Report is the outcome of one pass, suitable for human or JSON output.
type Report struct {
	Plan     Plan           `json:"plan"`
	Results  []ActionResult `json:"results,omitempty"`
	Warnings []Warning      `json:"warnings,omitempty"`
	DryRun   bool           `json:"dry_run,omitempty"`
	SaveErr  string         `json:"save_error,omitempty"`

	Mapping state.Mapping `json:"-"`
}

// Failed counts actions that were attempted and did not converge.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() && !res.Skipped {
			n++
		}
	}
	return n
}

// Pass wires one reconciliation pass together: load prior mapping, snapshot
// both inventories, diff, apply, persist.
type Pass struct {
	Store     *state.Store
	Worktrees WorktreeAdapter
	Sessions  SessionAdapter
	Resolver  *naming.Resolver

	// DryRun computes the plan without applying or saving.
	DryRun bool

	// KillsOnly restricts the plan to kills (prune mode).
	KillsOnly bool

	// OnCreate runs after each successfully created session, e.g. for
	// post-create hooks. Best-effort.
	OnCreate func(session, workDir string)
}

// Run executes one pass. The returned error is non-nil only for fatal
// conditions: an inventory snapshot failed entirely, or the state store is
// both unreadable and unwritable. Per-action failures are reported in the
// Report, never as an error.
func (p *Pass) Run(ctx context.Context) (*Report, error) {
	prior, loadErr := p.Store.Load()
	if loadErr != nil {
		logger.Warn("state load: %v", loadErr)
	}

	worktrees, err := p.Worktrees.WorktreeList(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing worktrees: %w", err)
	}
	sessions, err := p.Sessions.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	result := Reconcile(prior, worktrees, sessions, p.Resolver)
	if p.KillsOnly {
		result.Plan.Creates = nil
		result.Plan.Renames = nil
	}

	report := &Report{
		Plan:     result.Plan,
		Warnings: result.Warnings,
		DryRun:   p.DryRun,
	}
	if loadErr != nil {
		report.Warnings = append(report.Warnings, Warning{
			Code:    WarnStateLoad,
			Message: loadErr.Error(),
		})
	}

	if p.DryRun {
		report.Mapping = result.Carry
		return report, nil
	}

	mapping, results := Apply(ctx, result.Plan, p.Sessions, result.Carry, p.OnCreate)
	report.Results = results
	report.Mapping = mapping
	for _, res := range results {
		if res.Error != "" {
			report.Warnings = append(report.Warnings, Warning{
				Code:     WarnActionFailed,
				Worktree: res.Action.Worktree,
				Session:  res.Action.Session,
				Message:  fmt.Sprintf("%s: %s", res.Action, res.Error),
			})
		}
	}

	if err := p.Store.Save(mapping); err != nil {
		logger.Error("state save: %v", err)
		report.SaveErr = err.Error()
		if loadErr != nil {
			// store is neither readable nor writable
			return report, fmt.Errorf("state store unusable: load: %v; save: %w", loadErr, err)
		}
	}

	return report, nil
}

// EntryState labels a mapping entry against the current snapshots. States
// advance only through reconciliation passes.
type EntryState string

const (
	StateLive    EntryState = "live"    // worktree and session both present
	StateLost    EntryState = "lost"    // worktree present, session gone
	StateOrphan  EntryState = "orphan"  // worktree gone, session still up
	StateRemoved EntryState = "removed" // both gone; entry to be dropped
)

// StateOf classifies an entry given whether its worktree and session were
// observed in the current snapshots.
func StateOf(worktreePresent, sessionPresent bool) EntryState {
	switch {
	case worktreePresent && sessionPresent:
		return StateLive
	case worktreePresent:
		return StateLost
	case sessionPresent:
		return StateOrphan
	default:
		return StateRemoved
	}
}
