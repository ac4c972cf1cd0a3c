// Package naming derives tmux session names from git worktrees.
//
// Resolution is a pure function of the worktree set: the same worktrees
// always produce the same names, regardless of listing order. Collisions
// are broken with numeric suffixes assigned in sorted-by-path order.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/tmux"
)

// NamingError indicates a worktree whose path and branch cannot produce a
// valid session name. The worktree is skipped for the pass; this is never
// fatal.
type NamingError struct {
	Path   string
	Branch string
	Reason string
}

func (e *NamingError) Error() string {
	return fmt.Sprintf("cannot name session for worktree %s (branch %q): %s", e.Path, e.Branch, e.Reason)
}

// separator joins sanitized name segments and substitutes disallowed runes.
const separator = '-'

// substitutionRules is the declared mapping of character classes to their
// treatment during sanitization. Rules are evaluated in order; the first
// match wins. Runes matching no rule are dropped.
var substitutionRules = []struct {
	class      string
	matches    func(r rune) bool
	substitute bool // replace with separator rather than drop
}{
	{"allowed", func(r rune) bool {
		return r == '_' || r == separator ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z')
	}, false},
	{"path separators", func(r rune) bool { return r == '/' || r == '\\' }, true},
	{"punctuation", func(r rune) bool { return strings.ContainsRune(".:,;@#~^?*[]{}()", r) }, true},
	{"whitespace", unicode.IsSpace, true},
}

// reserved lists branch names that never become session names directly.
// HEAD shows up for detached worktrees; all-digit names collide with tmux
// numeric targets.
func reserved(name string) bool {
	if strings.EqualFold(name, "head") {
		return true
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SanitizeBranch maps a branch name onto the session-name alphabet using
// substitutionRules, collapsing separator runs and trimming the ends.
// Returns "" when nothing survives.
func SanitizeBranch(branch string) string {
	var b strings.Builder
	for _, r := range branch {
		// First matching rule wins; runes matching no rule are dropped.
		for _, rule := range substitutionRules {
			if !rule.matches(r) {
				continue
			}
			if rule.class == "allowed" {
				b.WriteRune(r)
			} else if rule.substitute {
				b.WriteRune(separator)
			}
			break
		}
	}

	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-_")
}

// PathHash returns the hash-based fallback name for a worktree path.
func PathHash(path string) string {
	sum := sha256.Sum256([]byte(path))
	return "wt-" + hex.EncodeToString(sum[:])[:8]
}

// Resolver derives session names. Valid is the multiplexer's session-name
// predicate; when nil, tmux's constraints are used.
type Resolver struct {
	Prefix string
	Valid  func(string) bool
}

// NewResolver creates a Resolver with the given session-name prefix.
func NewResolver(prefix string) *Resolver {
	return &Resolver{Prefix: prefix, Valid: tmux.ValidSessionName}
}

func (r *Resolver) valid(name string) bool {
	if r.Valid != nil {
		return r.Valid(name)
	}
	return tmux.ValidSessionName(name)
}

// base derives the pre-collision name for a worktree: sanitized branch, or
// the path hash when the branch is empty, reserved, or sanitizes to nothing.
func (r *Resolver) base(wt git.Worktree) (string, error) {
	name := ""
	if wt.Branch != "" && !reserved(wt.Branch) {
		name = SanitizeBranch(wt.Branch)
	}
	if name == "" || reserved(name) {
		name = PathHash(wt.Path)
	}
	name = r.Prefix + name

	if !r.valid(name) {
		// Last resort: the bare hash with prefix stripped of anything odd.
		fallback := PathHash(wt.Path)
		if r.valid(fallback) {
			return fallback, nil
		}
		return "", &NamingError{Path: wt.Path, Branch: wt.Branch, Reason: "no valid session name"}
	}
	return name, nil
}

// Resolve derives the session name for a single worktree given the names
// already claimed in this pass. claimed maps name -> worktree path.
// The claimed map is updated with the result.
func (r *Resolver) Resolve(wt git.Worktree, claimed map[string]string) (string, error) {
	base, err := r.base(wt)
	if err != nil {
		return "", err
	}

	name := base
	for n := 2; ; n++ {
		holder, taken := claimed[name]
		if !taken || holder == wt.Path {
			break
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}
	if !r.valid(name) {
		return "", &NamingError{Path: wt.Path, Branch: wt.Branch, Reason: fmt.Sprintf("suffixed name %q invalid", name)}
	}

	claimed[name] = wt.Path
	return name, nil
}

// ResolveAll computes desired session names for every worktree, keyed by
// worktree path. Worktrees are processed in sorted-by-path order so that
// collision suffixes are assigned deterministically. Worktrees that cannot
// be named are reported and omitted.
func (r *Resolver) ResolveAll(worktrees []git.Worktree) (map[string]string, []*NamingError) {
	sorted := make([]git.Worktree, len(worktrees))
	copy(sorted, worktrees)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	desired := make(map[string]string, len(sorted))
	claimed := make(map[string]string, len(sorted))
	var errs []*NamingError

	for _, wt := range sorted {
		name, err := r.Resolve(wt, claimed)
		if err != nil {
			var ne *NamingError
			if errors.As(err, &ne) {
				errs = append(errs, ne)
			} else {
				errs = append(errs, &NamingError{Path: wt.Path, Branch: wt.Branch, Reason: err.Error()})
			}
			continue
		}
		desired[wt.Path] = name
	}
	return desired, errs
}
