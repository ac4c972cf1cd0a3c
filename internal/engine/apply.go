package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Gii4667/twig/internal/logger"
	"github.com/Gii4667/twig/internal/state"
	"github.com/Gii4667/twig/internal/tmux"
)

// SessionMutator is the mutation half of the session inventory adapter.
// *tmux.Tmux satisfies it.
type SessionMutator interface {
	NewSession(ctx context.Context, name, workDir string) error
	RenameSession(ctx context.Context, oldName, newName string) error
	KillSession(ctx context.Context, name string) error
}

// ActionResult records the outcome of one executed (or skipped) action.
type ActionResult struct {
	Action  Action `json:"action"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Adopted bool   `json:"adopted,omitempty"`
}

// OK reports whether the action converged.
func (r ActionResult) OK() bool {
	return r.Error == "" && !r.Skipped
}

// Apply executes a plan through the adapter, folding outcomes into the
// carry mapping. Action failures are independent: one failure never aborts
// the rest. On context cancellation no further action is started, but the
// in-flight adapter call runs to completion, so no action is ever
// half-applied from the engine's perspective.
func Apply(ctx context.Context, plan Plan, adapter SessionMutator, carry state.Mapping, onCreate func(session, workDir string)) (state.Mapping, []ActionResult) {
	mapping := carry.Clone()
	results := make([]ActionResult, 0, len(plan.Kills)+len(plan.Creates)+len(plan.Renames))

	for _, action := range plan.Actions() {
		if ctx.Err() != nil {
			results = append(results, ActionResult{Action: action, Skipped: true})
			continue
		}

		res := ActionResult{Action: action}
		switch action.Kind {
		case ActionKill:
			err := adapter.KillSession(ctx, action.Session)
			if err != nil && !errors.Is(err, tmux.ErrSessionNotFound) && !errors.Is(err, tmux.ErrNoServer) {
				res.Error = err.Error()
				break
			}
			delete(mapping.Entries, action.Worktree)

		case ActionCreate:
			err := adapter.NewSession(ctx, action.Session, action.Worktree)
			if errors.Is(err, tmux.ErrSessionExists) {
				// Raced with an external creator. Safe to adopt only if
				// no other entry claims the name.
				if owner, claimed := mapping.SessionFor(action.Session); claimed && owner != action.Worktree {
					res.Error = err.Error()
					break
				}
				res.Adopted = true
				err = nil
			}
			if err != nil {
				res.Error = err.Error()
				break
			}
			mapping.Entries[action.Worktree] = state.Entry{
				SessionName: action.Session,
				LastSeen:    time.Now(),
				Locked:      action.locked,
				Branch:      action.branch,
			}
			if onCreate != nil && !res.Adopted {
				onCreate(action.Session, action.Worktree)
			}

		case ActionRename:
			if err := adapter.RenameSession(ctx, action.Session, action.NewName); err != nil {
				// old mapping entry is retained; retried next pass
				res.Error = err.Error()
				break
			}
			entry := mapping.Entries[action.Worktree]
			entry.SessionName = action.NewName
			mapping.Entries[action.Worktree] = entry
		}

		if res.Error != "" {
			logger.Warn("action %s failed: %s", action, res.Error)
		} else {
			logger.Debug("action %s applied", action)
		}
		results = append(results, res)
	}

	return mapping, results
}
