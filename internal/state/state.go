// Package state persists the worktree-to-session mapping across
// invocations. The mapping is advisory: git and tmux remain the ground
// truth, so a lost or corrupt state file degrades to a full-rescan
// reconciliation rather than an error.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Gii4667/twig/internal/constants"
	"github.com/Gii4667/twig/internal/logger"
)

// Entry links a worktree identity (absolute path) to the session believed
// to represent it.
type Entry struct {
	SessionName string    `json:"session_name"`
	LastSeen    time.Time `json:"last_seen"`
	Locked      bool      `json:"locked,omitempty"`
	Attached    bool      `json:"attached,omitempty"`
	Branch      string    `json:"branch,omitempty"`
}

// Mapping is the persisted record set, keyed by worktree path.
// Unknown fields in the file are ignored on load, so newer twig versions
// can extend the format without breaking older ones.
type Mapping struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// CurrentVersion is written to new state files.
const CurrentVersion = 1

// NewMapping returns an empty mapping.
func NewMapping() Mapping {
	return Mapping{Version: CurrentVersion, Entries: make(map[string]Entry)}
}

// Clone returns a deep copy of the mapping.
func (m Mapping) Clone() Mapping {
	out := Mapping{Version: m.Version, Entries: make(map[string]Entry, len(m.Entries))}
	for k, v := range m.Entries {
		out.Entries[k] = v
	}
	return out
}

// SessionFor returns the worktree path mapped to the given session name.
func (m Mapping) SessionFor(name string) (string, bool) {
	for path, e := range m.Entries {
		if e.SessionName == name {
			return path, true
		}
	}
	return "", false
}

// Store reads and writes the mapping file.
type Store struct {
	path string
}

// NewStore creates a Store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// DefaultDir returns the twig state directory:
// $XDG_STATE_HOME/twig, falling back to ~/.local/state/twig.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "twig"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "twig"), nil
}

// DefaultPath returns the default mapping file location.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.StateFileName), nil
}

// PathFor returns the per-repository mapping file for the given repo key
// (its common git directory). Mappings are scoped per repository so that
// reconciling one repo never schedules kills for another repo's entries.
func PathFor(repoKey string) (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(repoKey))
	name := fmt.Sprintf("state-%s.json", hex.EncodeToString(sum[:])[:12])
	return filepath.Join(dir, "repos", name), nil
}

// Load reads the mapping. A missing or corrupt file yields an empty
// mapping and no error; only genuine I/O failures (e.g. permissions) are
// reported, and even then the returned mapping is usable.
func (s *Store) Load() (Mapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewMapping(), nil
		}
		return NewMapping(), fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		logger.Warn("state file %s corrupt, starting from empty mapping: %v", s.path, err)
		return NewMapping(), nil
	}
	if m.Entries == nil {
		m.Entries = make(map[string]Entry)
	}
	return m, nil
}

// Save writes the mapping atomically: write to a temp file in the same
// directory, sync, then rename over the old file. A crash mid-save never
// leaves a partially written mapping.
func (s *Store) Save(m Mapping) error {
	m.Version = CurrentVersion

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
