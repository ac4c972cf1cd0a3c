package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/Gii4667/twig/internal/logger"
)

// postCreateHook returns the per-session setup callback for newly created
// sessions: copy configured files into the worktree and type the
// post_create commands into the fresh session. Everything here is
// best-effort; failures are logged, never fatal.
func postCreateHook(ctx context.Context, e *env) func(session, workDir string) {
	return func(session, workDir string) {
		project := e.cfg.ProjectFor(workDir)
		if project == nil || project.Worktree == nil {
			return
		}
		root := project.RootExpanded()

		for _, rel := range project.Worktree.Copy {
			src := filepath.Join(root, rel)
			dst := filepath.Join(workDir, rel)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := copyFile(src, dst); err != nil {
				logger.Warn("copying %s into %s: %v", rel, workDir, err)
			}
		}

		for _, command := range project.Worktree.PostCreate {
			if err := e.tmux.SendKeys(ctx, session, command); err != nil {
				logger.Warn("post-create command %q in %s: %v", command, session, err)
				return
			}
		}
	}
}

// copyFile copies a single file, creating parent directories and
// preserving permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
