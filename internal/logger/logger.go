// Package logger writes diagnostic output to a log file so that command
// output stays clean for the terminal. Backed by slog with a dynamically
// adjustable level.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Gii4667/twig/internal/constants"
)

var (
	mu       sync.Mutex
	levelVar = new(slog.LevelVar)
	logFile  *os.File
	log      *slog.Logger
	initDone bool
)

// DefaultPath returns the log file location under the user's state
// directory: $XDG_STATE_HOME/twig/debug.log, falling back to
// ~/.local/state/twig/debug.log.
func DefaultPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "twig-"+constants.DebugLogFileName)
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "twig", constants.DebugLogFileName)
}

// SetDebug lowers the log level to debug when enabled.
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Init opens the log file and installs the handler. Safe to call more than
// once; subsequent calls are no-ops.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}
	logFile = f
	log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
	initDone = true
	return nil
}

func write(level slog.Level, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if !initDone {
		if err := initLocked(DefaultPath()); err != nil {
			return
		}
	}
	if !log.Enabled(context.Background(), level) {
		return
	}
	log.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

// initLocked is Init without the lock, for use from write.
func initLocked(path string) error {
	if initDone {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	logFile = f
	log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
	initDone = true
	return nil
}

// Debug writes a debug-level message.
func Debug(format string, args ...interface{}) { write(slog.LevelDebug, format, args...) }

// Info writes an info-level message.
func Info(format string, args ...interface{}) { write(slog.LevelInfo, format, args...) }

// Warn writes a warning-level message.
func Warn(format string, args ...interface{}) { write(slog.LevelWarn, format, args...) }

// Error writes an error-level message.
func Error(format string, args ...interface{}) { write(slog.LevelError, format, args...) }

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	log = nil
	initDone = false
}

// Reset closes the logger and clears state. Test helper.
func Reset() {
	Close()
	levelVar.Set(slog.LevelInfo)
}
