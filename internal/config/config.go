// Package config loads twig's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the user configuration, read from
// $XDG_CONFIG_HOME/twig/config.yaml (default ~/.config/twig/config.yaml).
// A missing file yields defaults.
type Config struct {
	// SessionPrefix is prepended to every derived session name.
	SessionPrefix string `yaml:"session_prefix"`

	// Timeout bounds each external tool invocation, e.g. "10s".
	Timeout string `yaml:"timeout"`

	// Projects carry per-repository worktree hooks.
	Projects []Project `yaml:"projects"`
}

// Project configures worktree handling for one repository.
type Project struct {
	Name     string          `yaml:"name"`
	Root     string          `yaml:"root"`
	Worktree *WorktreeConfig `yaml:"worktree,omitempty"`
}

// WorktreeConfig lists files to copy into new worktrees and commands to run
// in a freshly created session.
type WorktreeConfig struct {
	Copy       []string `yaml:"copy"`
	PostCreate []string `yaml:"post_create"`
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "twig", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "twig", "config.yaml"), nil
}

// Load reads the config at path. A missing file is not an error; defaults
// are returned.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// CallTimeout returns the configured per-call timeout, or fallback when
// unset or unparseable.
func (c *Config) CallTimeout(fallback time.Duration) time.Duration {
	if c.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ProjectFor returns the project whose root contains path, or nil.
func (c *Config) ProjectFor(path string) *Project {
	for i := range c.Projects {
		root := ExpandHome(c.Projects[i].Root)
		if root == "" {
			continue
		}
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return &c.Projects[i]
		}
	}
	return nil
}

// RootExpanded returns the project root with ~ expanded.
func (p *Project) RootExpanded() string {
	return ExpandHome(p.Root)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
