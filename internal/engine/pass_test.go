package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/state"
	"github.com/Gii4667/twig/internal/tmux"
)

// fakeInventory wraps fakeMux with the listing half so it satisfies both
// adapter interfaces.
type fakeInventory struct {
	*fakeMux
	worktrees []git.Worktree
}

func (f *fakeInventory) WorktreeList(ctx context.Context) ([]git.Worktree, error) {
	return f.worktrees, nil
}

func (f *fakeInventory) ListSessions(ctx context.Context) ([]tmux.Session, error) {
	return f.list(), nil
}

func newPass(t *testing.T, inv *fakeInventory) *Pass {
	t.Helper()
	return &Pass{
		Store:     state.NewStore(filepath.Join(t.TempDir(), "state.json")),
		Worktrees: inv,
		Sessions:  inv,
		Resolver:  resolver(),
	}
}

func TestPassConvergesAndPersists(t *testing.T) {
	inv := &fakeInventory{
		fakeMux: newFakeMux(),
		worktrees: []git.Worktree{
			{Path: "/r/a", Branch: "alpha"},
			{Path: "/r/b", Branch: "beta"},
		},
	}
	pass := newPass(t, inv)

	report, err := pass.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() != 0 {
		t.Fatalf("failed actions: %+v", report.Results)
	}
	if !inv.sessions["alpha"] || !inv.sessions["beta"] {
		t.Errorf("sessions not created: %v", inv.sessions)
	}

	// The persisted mapping must reflect the applied actions.
	saved, err := pass.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Entries["/r/a"].SessionName != "alpha" || saved.Entries["/r/b"].SessionName != "beta" {
		t.Errorf("persisted mapping = %+v", saved.Entries)
	}

	// Second run against unchanged inventories plans nothing.
	report2, err := pass.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !report2.Plan.Empty() {
		t.Errorf("second pass planned actions: %+v", report2.Plan)
	}
}

func TestPassDryRunMutatesNothing(t *testing.T) {
	inv := &fakeInventory{
		fakeMux:   newFakeMux(),
		worktrees: []git.Worktree{{Path: "/r/a", Branch: "alpha"}},
	}
	pass := newPass(t, inv)
	pass.DryRun = true

	report, err := pass.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Plan.Creates) != 1 {
		t.Fatalf("expected planned create, got %+v", report.Plan)
	}
	if len(inv.calls) != 0 {
		t.Errorf("dry run invoked the adapter: %v", inv.calls)
	}
	saved, _ := pass.Store.Load()
	if len(saved.Entries) != 0 {
		t.Errorf("dry run persisted state: %v", saved.Entries)
	}
}

func TestPassKillsOnly(t *testing.T) {
	inv := &fakeInventory{
		fakeMux:   newFakeMux("stale"),
		worktrees: []git.Worktree{{Path: "/r/new", Branch: "fresh"}},
	}
	pass := newPass(t, inv)
	pass.KillsOnly = true

	// Seed an entry for a worktree that no longer exists.
	prior := state.NewMapping()
	prior.Entries["/r/gone"] = state.Entry{SessionName: "stale"}
	if err := pass.Store.Save(prior); err != nil {
		t.Fatal(err)
	}

	report, err := pass.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Plan.Kills) != 1 || len(report.Plan.Creates) != 0 || len(report.Plan.Renames) != 0 {
		t.Fatalf("kills-only plan = %+v", report.Plan)
	}
	if inv.sessions["stale"] {
		t.Error("stale session survived prune")
	}
	if inv.sessions["fresh"] {
		t.Error("prune created a session")
	}
}

func TestPassCorruptStateRecovers(t *testing.T) {
	inv := &fakeInventory{
		fakeMux:   newFakeMux(),
		worktrees: []git.Worktree{{Path: "/r/a", Branch: "alpha"}},
	}
	pass := newPass(t, inv)

	// A corrupt state file degrades to a full rescan, not an error.
	if err := os.WriteFile(pass.Store.Path(), []byte("{{{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := pass.Run(context.Background())
	if err != nil {
		t.Fatalf("Run with corrupt state: %v", err)
	}
	if report.Failed() != 0 {
		t.Fatalf("failed actions: %+v", report.Results)
	}
	if !inv.sessions["alpha"] {
		t.Error("session not recreated after state loss")
	}

	saved, err := pass.Store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if saved.Entries["/r/a"].SessionName != "alpha" {
		t.Errorf("state not rewritten after recovery: %+v", saved.Entries)
	}
}

func TestPassOnCreateHook(t *testing.T) {
	inv := &fakeInventory{
		fakeMux:   newFakeMux(),
		worktrees: []git.Worktree{{Path: "/r/a", Branch: "alpha"}},
	}
	pass := newPass(t, inv)

	var hooked []string
	pass.OnCreate = func(session, workDir string) {
		hooked = append(hooked, session+" "+workDir)
	}

	if _, err := pass.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hooked) != 1 || hooked[0] != "alpha /r/a" {
		t.Errorf("hook calls = %v", hooked)
	}
}
