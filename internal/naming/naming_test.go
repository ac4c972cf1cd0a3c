package naming

import (
	"strings"
	"testing"

	"github.com/Gii4667/twig/internal/git"
)

func TestSanitizeBranch(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		want   string
	}{
		{"plain", "main", "main"},
		{"slash becomes dash", "feature/login", "feature-login"},
		{"nested slashes", "user/feature/login", "user-feature-login"},
		{"dots and colons", "release:v1.2.3", "release-v1-2-3"},
		{"underscores kept", "fix_bug_123", "fix_bug_123"},
		{"whitespace", "my branch", "my-branch"},
		{"separator runs collapsed", "a//b..c", "a-b-c"},
		{"leading trailing trimmed", "/feature/", "feature"},
		{"unicode dropped", "café", "caf"},
		{"nothing survives", "...", ""},
		{"empty", "", ""},
		{"mixed case kept", "Feature/Login", "Feature-Login"},
		{"brackets", "wip[2]", "wip-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeBranch(tt.branch); got != tt.want {
				t.Errorf("SanitizeBranch(%q) = %q, want %q", tt.branch, got, tt.want)
			}
		})
	}
}

func TestPathHashStable(t *testing.T) {
	a := PathHash("/home/me/repo/wt1")
	b := PathHash("/home/me/repo/wt1")
	if a != b {
		t.Errorf("PathHash not stable: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "wt-") || len(a) != len("wt-")+8 {
		t.Errorf("unexpected hash shape: %q", a)
	}
	if a == PathHash("/home/me/repo/wt2") {
		t.Error("distinct paths hashed to the same name")
	}
}

func TestResolveFallsBackToHash(t *testing.T) {
	r := NewResolver("")
	tests := []struct {
		name string
		wt   git.Worktree
	}{
		{"detached HEAD", git.Worktree{Path: "/r/wt", Branch: "", Detached: true}},
		{"branch named HEAD", git.Worktree{Path: "/r/wt", Branch: "HEAD"}},
		{"all digits", git.Worktree{Path: "/r/wt", Branch: "12345"}},
		{"sanitizes to nothing", git.Worktree{Path: "/r/wt", Branch: "..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.wt, map[string]string{})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			want := PathHash(tt.wt.Path)
			if got != want {
				t.Errorf("Resolve = %q, want hash fallback %q", got, want)
			}
		})
	}
}

func TestResolvePrefix(t *testing.T) {
	r := NewResolver("twig-")
	got, err := r.Resolve(git.Worktree{Path: "/r/wt", Branch: "main"}, map[string]string{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "twig-main" {
		t.Errorf("Resolve = %q, want %q", got, "twig-main")
	}
}

func TestResolveCollisionSuffixes(t *testing.T) {
	r := NewResolver("")
	claimed := map[string]string{}

	worktrees := []git.Worktree{
		{Path: "/r/a", Branch: "feature/login"},
		{Path: "/r/b", Branch: "feature-login"},
		{Path: "/r/c", Branch: "feature.login"},
	}
	want := []string{"feature-login", "feature-login-2", "feature-login-3"}
	for i, wt := range worktrees {
		got, err := r.Resolve(wt, claimed)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", wt.Path, err)
		}
		if got != want[i] {
			t.Errorf("Resolve(%s) = %q, want %q", wt.Path, got, want[i])
		}
	}

	// Re-resolving the same worktree keeps its claim rather than suffixing.
	got, err := r.Resolve(worktrees[0], claimed)
	if err != nil {
		t.Fatalf("re-Resolve: %v", err)
	}
	if got != "feature-login" {
		t.Errorf("re-Resolve = %q, want existing claim %q", got, "feature-login")
	}
}

func TestResolveAllDeterministicUnderPermutation(t *testing.T) {
	r := NewResolver("")
	forward := []git.Worktree{
		{Path: "/r/a", Branch: "feat/x"},
		{Path: "/r/b", Branch: "feat.x"},
		{Path: "/r/c", Branch: "main"},
	}
	reverse := []git.Worktree{forward[2], forward[1], forward[0]}

	got1, errs1 := r.ResolveAll(forward)
	got2, errs2 := r.ResolveAll(reverse)
	if len(errs1) != 0 || len(errs2) != 0 {
		t.Fatalf("unexpected naming errors: %v %v", errs1, errs2)
	}
	if len(got1) != len(got2) {
		t.Fatalf("map sizes differ: %d vs %d", len(got1), len(got2))
	}
	for path, name := range got1 {
		if got2[path] != name {
			t.Errorf("order-dependent name for %s: %q vs %q", path, name, got2[path])
		}
	}
	// Suffixes are assigned in sorted-by-path order: /r/a wins the base name.
	if got1["/r/a"] != "feat-x" || got1["/r/b"] != "feat-x-2" {
		t.Errorf("suffix assignment not path-ordered: %v", got1)
	}
}

func TestResolveAllReportsUnnameable(t *testing.T) {
	r := NewResolver("")
	// A validity predicate that rejects everything forces a NamingError.
	r.Valid = func(string) bool { return false }

	desired, errs := r.ResolveAll([]git.Worktree{{Path: "/r/a", Branch: "main"}})
	if len(desired) != 0 {
		t.Errorf("expected no resolved names, got %v", desired)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 naming error, got %d", len(errs))
	}
	if errs[0].Path != "/r/a" {
		t.Errorf("error path = %q, want /r/a", errs[0].Path)
	}
}

func TestReserved(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"HEAD", true},
		{"head", true},
		{"Head", true},
		{"12345", true},
		{"0", true},
		{"main", false},
		{"head2", false},
		{"1a", false},
	}
	for _, tt := range tests {
		if got := reserved(tt.name); got != tt.want {
			t.Errorf("reserved(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
