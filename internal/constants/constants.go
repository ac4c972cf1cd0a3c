// Package constants holds shared tunables for twig.
package constants

import "time"

const (
	// TmuxCallTimeout bounds a single tmux invocation. A hung tmux server
	// surfaces as ErrBackendUnavailable rather than blocking the pass.
	TmuxCallTimeout = 10 * time.Second

	// GitCallTimeout bounds a single git invocation.
	GitCallTimeout = 15 * time.Second

	// LockTimeout is how long a pass waits for the invocation lock before
	// giving up. Concurrent passes are serialized, not interleaved.
	LockTimeout = 5 * time.Second

	// LockRetryInterval is the polling interval while waiting for the lock.
	LockRetryInterval = 100 * time.Millisecond

	// WatchDebounce coalesces bursts of filesystem events (git rewrites
	// several files under .git/worktrees per operation) into one pass.
	WatchDebounce = 500 * time.Millisecond
)

const (
	// StateFileName is the mapping file under the twig state directory.
	StateFileName = "state.json"

	// LockFileName is the invocation lock file under the state directory.
	LockFileName = "twig.lock"

	// DebugLogFileName is the slog output file under the state directory.
	DebugLogFileName = "debug.log"
)
