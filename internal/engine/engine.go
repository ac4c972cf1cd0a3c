// Package engine computes and applies the diff between the worktree set
// (desired state) and the tmux session table (observed state).
//
// Reconcile is a pure function over immutable snapshots taken at the start
// of a pass; Apply executes the resulting plan best-effort. Each invocation
// is one discrete pass, never a background loop.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/naming"
	"github.com/Gii4667/twig/internal/state"
	"github.com/Gii4667/twig/internal/tmux"
)

// ActionKind identifies a session mutation.
type ActionKind string

const (
	ActionKill   ActionKind = "kill"
	ActionCreate ActionKind = "create"
	ActionRename ActionKind = "rename"
)

// Action is one session mutation in a plan. Session is the target name
// (the old name for renames); Worktree is the identity the action serves.
type Action struct {
	Kind     ActionKind `json:"kind"`
	Session  string     `json:"session"`
	NewName  string     `json:"new_name,omitempty"`
	Worktree string     `json:"worktree,omitempty"`

	// entry fields recorded on success
	branch string
	locked bool
}

func (a Action) String() string {
	switch a.Kind {
	case ActionRename:
		return fmt.Sprintf("rename %s -> %s", a.Session, a.NewName)
	case ActionCreate:
		return fmt.Sprintf("create %s (%s)", a.Session, a.Worktree)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.Session)
	}
}

// Warning codes reported alongside a pass. None of these abort the pass.
const (
	WarnNameConflict = "name-conflict"
	WarnNamingError  = "naming-error"
	WarnActionFailed = "action-failed"
	WarnAdopted      = "adopted-session"
	WarnStateLoad    = "state-load"
)

// Warning is a recoverable, per-worktree or per-action condition.
type Warning struct {
	Code     string `json:"code"`
	Worktree string `json:"worktree,omitempty"`
	Session  string `json:"session,omitempty"`
	Message  string `json:"message"`
}

// Plan is the ordered action set for one pass: kills before creates before
// renames, minimizing the window where a soon-to-be-reused name collides
// with a session pending deletion.
type Plan struct {
	Kills   []Action `json:"kills,omitempty"`
	Creates []Action `json:"creates,omitempty"`
	Renames []Action `json:"renames,omitempty"`
}

// Actions returns the plan's actions in execution order.
func (p Plan) Actions() []Action {
	out := make([]Action, 0, len(p.Kills)+len(p.Creates)+len(p.Renames))
	out = append(out, p.Kills...)
	out = append(out, p.Creates...)
	out = append(out, p.Renames...)
	return out
}

// Empty reports whether the plan contains no actions.
func (p Plan) Empty() bool {
	return len(p.Kills) == 0 && len(p.Creates) == 0 && len(p.Renames) == 0
}

// Result is the outcome of Reconcile: the plan, the carry mapping (entries
// as they should read before any action is applied; Apply folds action
// outcomes into it), and reconcile-time warnings.
type Result struct {
	Plan     Plan
	Carry    state.Mapping
	Warnings []Warning
}

// Reconcile diffs prior mapping + current worktrees against current
// sessions and produces the minimal ordered action sequence to converge.
// Pure: no adapter calls, deterministic for a given snapshot pair.
func Reconcile(prior state.Mapping, worktrees []git.Worktree, sessions []tmux.Session, resolver *naming.Resolver) *Result {
	now := time.Now()
	res := &Result{Carry: state.NewMapping()}

	sset := tmux.NewSessionSet(sessions)

	byPath := make(map[string]git.Worktree, len(worktrees))
	for _, wt := range worktrees {
		byPath[wt.Path] = wt
	}

	desired, namingErrs := resolver.ResolveAll(worktrees)
	for _, ne := range namingErrs {
		res.Warnings = append(res.Warnings, Warning{
			Code:     WarnNamingError,
			Worktree: ne.Path,
			Message:  ne.Error(),
		})
	}

	// Pass 1: prior entries whose worktree has disappeared. Locked
	// worktrees are treated as still present even when unlistable, so a
	// concurrent git operation never costs a session.
	killNames := make(map[string]bool)
	for _, path := range sortedKeys(prior.Entries) {
		if _, present := byPath[path]; present {
			continue
		}
		entry := prior.Entries[path]
		if entry.Locked {
			res.Carry.Entries[path] = entry
			continue
		}
		if sset.Has(entry.SessionName) {
			res.Plan.Kills = append(res.Plan.Kills, Action{
				Kind:     ActionKill,
				Session:  entry.SessionName,
				Worktree: path,
			})
			killNames[entry.SessionName] = true
			// entry carried until the kill actually lands
			res.Carry.Entries[path] = entry
		}
		// session and worktree both gone: entry is simply dropped
	}

	// Names claimed by prior entries of still-present worktrees. A name in
	// this set must never be adopted by another worktree, even before its
	// claimant is reached in path order.
	priorClaims := make(map[string]string)
	for path, entry := range prior.Entries {
		if _, present := byPath[path]; present {
			priorClaims[entry.SessionName] = path
		}
	}

	// Pass 2: current worktrees, in sorted order for determinism.
	sortedPaths := sortedKeys(byPath)
	for _, path := range sortedPaths {
		wt := byPath[path]
		name, ok := desired[path]
		if !ok {
			// naming failed; skip the worktree entirely but keep any
			// prior entry untouched for the next pass
			if entry, had := prior.Entries[path]; had {
				res.Carry.Entries[path] = entry
			}
			continue
		}

		entry, had := prior.Entries[path]
		switch {
		case had && !sset.Has(entry.SessionName):
			// session lost externally: drop the stale entry, recreate
			res.Plan.Creates = append(res.Plan.Creates, createAction(wt, name))

		case had && entry.SessionName != name:
			// desired name changed: rename unless the target is held by
			// a live session that is not going away this pass
			if sset.Has(name) && !killNames[name] {
				res.Warnings = append(res.Warnings, Warning{
					Code:     WarnNameConflict,
					Worktree: path,
					Session:  entry.SessionName,
					Message:  fmt.Sprintf("cannot rename %s to %s: name held by a live session", entry.SessionName, name),
				})
				res.Carry.Entries[path] = refreshed(entry, wt, sset, now)
				continue
			}
			res.Plan.Renames = append(res.Plan.Renames, Action{
				Kind:     ActionRename,
				Session:  entry.SessionName,
				NewName:  name,
				Worktree: path,
				branch:   wt.Branch,
				locked:   wt.Locked,
			})
			// old entry carried; Apply swaps in the new name on success
			res.Carry.Entries[path] = refreshed(entry, wt, sset, now)

		case had:
			// converged; refresh bookkeeping only
			res.Carry.Entries[path] = refreshed(entry, wt, sset, now)

		default:
			// new worktree
			if existing, live := sset.Get(name); live && !killNames[name] {
				_, carryClaimed := res.Carry.SessionFor(name)
				_, priorClaimed := priorClaims[name]
				if !carryClaimed && !priorClaimed {
					// a session with exactly the desired name already
					// exists and nothing else owns it: adopt instead of
					// failing a create
					res.Carry.Entries[path] = state.Entry{
						SessionName: name,
						LastSeen:    now,
						Locked:      wt.Locked,
						Attached:    existing.Attached,
						Branch:      wt.Branch,
					}
					res.Warnings = append(res.Warnings, Warning{
						Code:     WarnAdopted,
						Worktree: path,
						Session:  name,
						Message:  fmt.Sprintf("adopted existing session %s", name),
					})
					continue
				}
			}
			res.Plan.Creates = append(res.Plan.Creates, createAction(wt, name))
		}
	}

	return res
}

func createAction(wt git.Worktree, name string) Action {
	return Action{
		Kind:     ActionCreate,
		Session:  name,
		Worktree: wt.Path,
		branch:   wt.Branch,
		locked:   wt.Locked,
	}
}

// refreshed carries an entry forward with current observations.
func refreshed(entry state.Entry, wt git.Worktree, sset *tmux.SessionSet, now time.Time) state.Entry {
	entry.LastSeen = now
	entry.Locked = wt.Locked
	entry.Branch = wt.Branch
	if s, ok := sset.Get(entry.SessionName); ok {
		entry.Attached = s.Attached
	}
	return entry
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
