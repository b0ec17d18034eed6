// Package repolocator finds the repository a patch series should be
// applied into: the working tree root and the .git directory that
// holds refs, the index, and (eventually) the session directory. It
// shells out to "git rev-parse" for both values (--show-toplevel and
// --absolute-git-dir) and resolves each through paths.Realpath so a
// session directory created under one path spelling is still found
// when the caller cds in through a symlink.
package repolocator

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/creachadair/gitam/paths"
)

// Repo describes the repository rooted at a working tree.
type Repo struct {
	// Root is the absolute, symlink-resolved path to the working tree.
	Root string
	// GitDir is the absolute, symlink-resolved path to the repository's
	// .git directory (or the separate git-dir for a worktree/bare setup).
	GitDir string
}

// SessionDir returns the path under GitDir where an in-progress
// apply/commit session is kept, mirroring how git itself keeps
// "rebase-apply" next to refs and objects rather than in the working
// tree, so an abandoned checkout switch doesn't orphan it.
func (r Repo) SessionDir() string {
	return filepath.Join(r.GitDir, "rebase-apply")
}

// Locate runs "git rev-parse" from dir (the process's working
// directory when dir is "") to find the enclosing repository.
func Locate(ctx context.Context, dir string) (Repo, error) {
	root, err := revParse(ctx, dir, "--show-toplevel")
	if err != nil {
		return Repo{}, fmt.Errorf("repolocator: not inside a git working tree: %w", err)
	}
	gitDir, err := revParse(ctx, dir, "--absolute-git-dir")
	if err != nil {
		return Repo{}, fmt.Errorf("repolocator: resolving git dir: %w", err)
	}

	rroot, err := resolve(root)
	if err != nil {
		return Repo{}, err
	}
	rgit, err := resolve(gitDir)
	if err != nil {
		return Repo{}, err
	}
	return Repo{Root: rroot, GitDir: rgit}, nil
}

func revParse(ctx context.Context, dir string, arg string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", arg)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git rev-parse %s: %s", arg, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// resolve expands path to an absolute, symlink-free form, falling
// back to filepath.Abs if the platform's realpath call is unavailable
// or the path has already been removed out from under us.
func resolve(path string) (string, error) {
	if abs, err := paths.Realpath(path); err == nil {
		return abs, nil
	}
	return filepath.Abs(path)
}
