package tmux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"
)

func hasTmux() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

func TestValidSessionName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"main", true},
		{"feature-login", true},
		{"fix_bug_123", true},
		{"UPPER-lower-9", true},
		{"", false},
		{"has space", false},
		{"has.dot", false},
		{"has:colon", false},
		{"über", false},
	}
	for _, tt := range tests {
		if got := ValidSessionName(tt.name); got != tt.want {
			t.Errorf("ValidSessionName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestListSessionsNoServer(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}

	tm := NewTmux()
	// Must not error even when no server is running.
	sessions, err := tm.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	_ = sessions
}

func TestHasSessionMissing(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}

	tm := NewTmux()
	has, err := tm.HasSession(context.Background(), "twig-test-nonexistent-xyz")
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if has {
		t.Error("expected session to not exist")
	}
}

func TestSessionLifecycle(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}

	ctx := context.Background()
	tm := NewTmux()
	name := fmt.Sprintf("twig-test-%d", time.Now().UnixNano())
	renamed := name + "-renamed"

	_ = tm.KillSession(ctx, name)
	_ = tm.KillSession(ctx, renamed)

	if err := tm.NewSession(ctx, name, t.TempDir()); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer func() {
		_ = tm.KillSession(ctx, name)
		_ = tm.KillSession(ctx, renamed)
	}()

	has, err := tm.HasSession(ctx, name)
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if !has {
		t.Fatal("created session not found")
	}

	if err := tm.NewSession(ctx, name, t.TempDir()); !errors.Is(err, ErrSessionExists) {
		t.Errorf("duplicate NewSession = %v, want ErrSessionExists", err)
	}

	sessions, err := tm.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if !NewSessionSet(sessions).Has(name) {
		t.Errorf("session %s missing from listing", name)
	}

	if err := tm.RenameSession(ctx, name, renamed); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	if has, _ := tm.HasSession(ctx, name); has {
		t.Error("old name still present after rename")
	}
	if has, _ := tm.HasSession(ctx, renamed); !has {
		t.Error("new name missing after rename")
	}

	if err := tm.KillSession(ctx, renamed); err != nil {
		t.Fatalf("KillSession: %v", err)
	}
	if err := tm.KillSession(ctx, renamed); !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrNoServer) {
		t.Errorf("double kill = %v, want ErrSessionNotFound or ErrNoServer", err)
	}
}

func TestRenameMissingSession(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}

	tm := NewTmux()
	err := tm.RenameSession(context.Background(), "twig-test-nonexistent-xyz", "twig-test-other")
	if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrNoServer) {
		t.Errorf("rename of missing session = %v, want ErrSessionNotFound or ErrNoServer", err)
	}
}

func TestCallTimeout(t *testing.T) {
	if !hasTmux() {
		t.Skip("tmux not installed")
	}

	tm := NewTmuxWithTimeout(1 * time.Nanosecond)
	_, err := tm.ListSessions(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expired deadline = %v, want ErrBackendUnavailable", err)
	}
}

func TestSessionSet(t *testing.T) {
	set := NewSessionSet([]Session{
		{Name: "alpha", Attached: true},
		{Name: "beta"},
	})

	if !set.Has("alpha") || !set.Has("beta") {
		t.Error("Has misses present sessions")
	}
	if set.Has("gamma") {
		t.Error("Has reports absent session")
	}
	s, ok := set.Get("alpha")
	if !ok || !s.Attached {
		t.Errorf("Get(alpha) = %+v, %v", s, ok)
	}
}
