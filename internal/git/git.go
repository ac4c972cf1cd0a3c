// Package git provides a read-only wrapper for git worktree inspection via
// subprocess. twig never mutates git state; worktrees are created and
// removed by the user or other tools, and this package only observes them.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gii4667/twig/internal/constants"
)

// ErrBackendUnavailable indicates git could not be invoked or timed out.
var ErrBackendUnavailable = errors.New("git unavailable")

// GitError contains raw output from a git command.
// Callers can observe Stdout/Stderr programmatically; the error interface
// methods provide human-readable messages.
type GitError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("git %s: %v", e.Command, e.Err)
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// Worktree represents a git worktree as reported by
// `git worktree list --porcelain`.
type Worktree struct {
	Path       string // absolute path; the worktree's stable identity
	Branch     string // branch name, empty when detached
	Head       string // commit hash
	Detached   bool
	Locked     bool
	LockReason string
	Prunable   bool
	Bare       bool
	Dirty      bool // uncommitted or untracked changes present
}

// Git wraps git operations for a repository. Every call is bounded by a
// timeout; a call that exceeds it fails with ErrBackendUnavailable.
type Git struct {
	workDir string
	timeout time.Duration
}

// NewGit creates a new Git wrapper for the given directory.
func NewGit(workDir string) *Git {
	return &Git{workDir: workDir, timeout: constants.GitCallTimeout}
}

// NewGitWithTimeout creates a Git wrapper with a custom per-call timeout.
func NewGitWithTimeout(workDir string, timeout time.Duration) *Git {
	return &Git{workDir: workDir, timeout: timeout}
}

// WorkDir returns the working directory for this Git instance.
func (g *Git) WorkDir() string {
	return g.workDir
}

// run executes a git command and returns stdout.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if g.workDir != "" {
		cmd.Dir = g.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: git %s: %v", ErrBackendUnavailable, args[0], ctx.Err())
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return "", &GitError{
			Command: args[0],
			Args:    args,
			Stdout:  stdout.String(),
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// IsRepo returns true if the workDir is inside a git repository.
func (g *Git) IsRepo(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// GitDir returns the absolute path of the repository's git directory.
// For a worktree this is the per-worktree gitdir; CommonDir is the shared one.
func (g *Git) GitDir(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return out, nil
}

// CommonDir returns the repository's shared git directory. The
// .git/worktrees subdirectory under it changes whenever worktrees are
// added, moved, or removed.
func (g *Git) CommonDir(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(g.workDir, out)
	}
	return filepath.Clean(out), nil
}

// WorktreeList returns all worktrees for this repository, in the order git
// reports them (main worktree first).
func (g *Git) WorktreeList(ctx context.Context) ([]Worktree, error) {
	out, err := g.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var worktrees []Worktree
	var current Worktree
	seen := false

	flush := func() {
		if seen && current.Path != "" {
			worktrees = append(worktrees, current)
		}
		current = Worktree{}
		seen = false
	}

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			flush()
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			current.Path = strings.TrimPrefix(line, "worktree ")
			seen = true
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "detached":
			current.Detached = true
		case line == "bare":
			current.Bare = true
		case line == "locked":
			current.Locked = true
		case strings.HasPrefix(line, "locked "):
			current.Locked = true
			current.LockReason = strings.TrimPrefix(line, "locked ")
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.Prunable = true
		}
	}
	flush()

	// Dirty state is advisory; a failing status check leaves it false.
	for i := range worktrees {
		if worktrees[i].Bare || worktrees[i].Prunable {
			continue
		}
		dirty, err := g.IsDirty(ctx, worktrees[i].Path)
		if err != nil {
			continue
		}
		worktrees[i].Dirty = dirty
	}

	return worktrees, nil
}

// IsDirty reports whether the worktree at path has uncommitted changes.
func (g *Git) IsDirty(ctx context.Context, path string) (bool, error) {
	out, err := g.run(ctx, "-C", path, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}
