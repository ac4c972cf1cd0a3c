// Package tmux provides a wrapper for tmux session operations via subprocess.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Gii4667/twig/internal/constants"
)

// validSessionNameRe validates session names to prevent shell injection and
// tmux target ambiguity. Dots and colons are target syntax in tmux and cause
// silent failures.
var validSessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Common errors
var (
	ErrNoServer           = errors.New("no tmux server running")
	ErrSessionExists      = errors.New("session already exists")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrBackendUnavailable = errors.New("tmux unavailable")
)

// ValidSessionName reports whether name satisfies tmux's session-name
// constraints as twig enforces them. Used as the naming resolver's
// validation predicate.
func ValidSessionName(name string) bool {
	return name != "" && validSessionNameRe.MatchString(name)
}

// validateSessionName checks that a session name contains only safe characters.
func validateSessionName(name string) error {
	if !ValidSessionName(name) {
		return fmt.Errorf("%w %q: must match %s", ErrInvalidSessionName, name, validSessionNameRe.String())
	}
	return nil
}

// Session is a snapshot of one tmux session as reported by list-sessions.
type Session struct {
	Name     string
	Attached bool
	Created  time.Time
}

// Tmux wraps tmux operations. Every call is bounded by a timeout; a call
// that exceeds it fails with ErrBackendUnavailable.
type Tmux struct {
	timeout time.Duration
}

// NewTmux creates a new Tmux wrapper with the default per-call timeout.
func NewTmux() *Tmux {
	return &Tmux{timeout: constants.TmuxCallTimeout}
}

// NewTmuxWithTimeout creates a Tmux wrapper with a custom per-call timeout.
func NewTmuxWithTimeout(timeout time.Duration) *Tmux {
	return &Tmux{timeout: timeout}
}

// run executes a tmux command and returns stdout.
// All commands include the -u flag for UTF-8 support regardless of locale.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	allArgs := append([]string{"-u"}, args...)
	cmd := exec.CommandContext(ctx, "tmux", allArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: tmux %s: %v", ErrBackendUnavailable, args[0], ctx.Err())
		}
		return "", t.wrapError(err, stderr.String(), args)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// wrapError maps tmux stderr to sentinel errors.
func (t *Tmux) wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	if strings.Contains(stderr, "no server running") ||
		strings.Contains(stderr, "error connecting to") ||
		strings.Contains(stderr, "no current target") ||
		strings.Contains(stderr, "server exited unexpectedly") {
		return ErrNoServer
	}
	if strings.Contains(stderr, "duplicate session") {
		return ErrSessionExists
	}
	if strings.Contains(stderr, "session not found") ||
		strings.Contains(stderr, "can't find session") {
		return ErrSessionNotFound
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

// IsAvailable checks if tmux is installed and can be invoked.
func (t *Tmux) IsAvailable() bool {
	return exec.Command("tmux", "-V").Run() == nil
}

// ListSessions returns a snapshot of all sessions. A missing server is not
// an error; it means there are no sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]Session, error) {
	out, err := t.run(ctx, "list-sessions", "-F", "#{session_name}\t#{session_attached}\t#{session_created}")
	if err != nil {
		if errors.Is(err, ErrNoServer) {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var sessions []Session
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		s := Session{Name: parts[0]}
		if len(parts) > 1 {
			// session_attached is a client count, not a boolean
			if n, err := strconv.Atoi(parts[1]); err == nil {
				s.Attached = n > 0
			}
		}
		if len(parts) > 2 {
			if ts, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				s.Created = time.Unix(ts, 0)
			}
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// HasSession checks if a session exists (exact match).
// Uses the "=" prefix to prevent tmux prefix matching
// (e.g. "feat-x-2" must not match a check for "feat-x").
func (t *Tmux) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := t.run(ctx, "has-session", "-t", "="+name)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewSession creates a new detached tmux session rooted at workDir.
func (t *Tmux) NewSession(ctx context.Context, name, workDir string) error {
	if err := validateSessionName(name); err != nil {
		return err
	}
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	_, err := t.run(ctx, args...)
	return err
}

// RenameSession renames a session.
func (t *Tmux) RenameSession(ctx context.Context, oldName, newName string) error {
	if err := validateSessionName(newName); err != nil {
		return err
	}
	_, err := t.run(ctx, "rename-session", "-t", "="+oldName, newName)
	return err
}

// KillSession terminates a tmux session.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	_, err := t.run(ctx, "kill-session", "-t", "="+name)
	return err
}

// SendKeys sends a line of input to a session and presses Enter.
// Text is sent in literal mode, with Enter as a separate command for
// reliability.
func (t *Tmux) SendKeys(ctx context.Context, session, keys string) error {
	if _, err := t.run(ctx, "send-keys", "-t", "="+session, "-l", keys); err != nil {
		return err
	}
	_, err := t.run(ctx, "send-keys", "-t", "="+session, "Enter")
	return err
}

// InsideTmux reports whether the current process runs inside a tmux client.
func InsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// AttachSession attaches the current terminal to a session. Inside an
// existing tmux client it switches the client instead, since nested
// attaches are refused by tmux.
func (t *Tmux) AttachSession(name string) error {
	verb := "attach-session"
	if InsideTmux() {
		verb = "switch-client"
	}
	cmd := exec.Command("tmux", "-u", verb, "-t", "="+name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// SessionSet provides O(1) session existence checks over a listing
// snapshot. Build it once at the start of a pass instead of issuing
// repeated has-session calls.
type SessionSet struct {
	sessions map[string]Session
}

// NewSessionSet creates a SessionSet from a listing snapshot.
func NewSessionSet(sessions []Session) *SessionSet {
	set := &SessionSet{sessions: make(map[string]Session, len(sessions))}
	for _, s := range sessions {
		set.sessions[s.Name] = s
	}
	return set
}

// Has returns true if a session with the given name exists in the snapshot.
func (s *SessionSet) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.sessions[name]
	return ok
}

// Get returns the snapshot entry for name.
func (s *SessionSet) Get(name string) (Session, bool) {
	if s == nil {
		return Session{}, false
	}
	sess, ok := s.sessions[name]
	return sess, ok
}
