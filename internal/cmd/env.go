package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Gii4667/twig/internal/config"
	"github.com/Gii4667/twig/internal/constants"
	"github.com/Gii4667/twig/internal/git"
	"github.com/Gii4667/twig/internal/naming"
	"github.com/Gii4667/twig/internal/state"
	"github.com/Gii4667/twig/internal/tmux"
)

// env bundles the adapters and stores a command needs for one invocation.
type env struct {
	cfg      *config.Config
	store    *state.Store
	git      *git.Git
	tmux     *tmux.Tmux
	resolver *naming.Resolver
	repoDir  string
	repoKey  string // common git dir; scopes state and the watch target
}

// buildEnv resolves configuration, locates the repository, and constructs
// the adapters. Fails when the working directory is not inside a git
// repository or tmux is not installed.
func buildEnv(ctx context.Context) (*env, error) {
	cfgPath := flagConfig
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	repoDir := flagRepo
	if repoDir == "" {
		repoDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}

	gitTimeout := cfg.CallTimeout(constants.GitCallTimeout)
	tmuxTimeout := cfg.CallTimeout(constants.TmuxCallTimeout)

	g := git.NewGitWithTimeout(repoDir, gitTimeout)
	if !g.IsRepo(ctx) {
		return nil, fmt.Errorf("%s is not inside a git repository", repoDir)
	}
	repoKey, err := g.CommonDir(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating git directory: %w", err)
	}

	t := tmux.NewTmuxWithTimeout(tmuxTimeout)
	if !t.IsAvailable() {
		return nil, fmt.Errorf("tmux is not installed or not on PATH")
	}

	statePath := flagStateFile
	if statePath == "" {
		statePath, err = state.PathFor(repoKey)
		if err != nil {
			return nil, err
		}
	}

	return &env{
		cfg:      cfg,
		store:    state.NewStore(statePath),
		git:      g,
		tmux:     t,
		resolver: naming.NewResolver(cfg.SessionPrefix),
		repoDir:  repoDir,
		repoKey:  repoKey,
	}, nil
}
