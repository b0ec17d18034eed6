package repolocator_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/creachadair/gitam/internal/repolocator"
	"github.com/creachadair/gitam/paths"
)

func TestLocateFailsOutsideAWorkingTree(t *testing.T) {
	dir := t.TempDir()
	if _, err := repolocator.Locate(context.Background(), dir); err == nil {
		t.Fatal("Locate succeeded outside any git working tree, want an error")
	}
}

func TestLocateResolvesAnInitializedRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	init := exec.Command("git", "init", "--quiet", dir)
	if out, err := init.CombinedOutput(); err != nil {
		t.Fatalf("git init: %v: %s", err, out)
	}

	repo, err := repolocator.Locate(context.Background(), dir)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	wantRoot, err := paths.Realpath(dir)
	if err != nil {
		t.Fatalf("Realpath(%s): %v", dir, err)
	}
	if repo.Root != wantRoot {
		t.Errorf("Root = %q, want %q", repo.Root, wantRoot)
	}
	if filepath.Base(repo.GitDir) != ".git" {
		t.Errorf("GitDir = %q, want a path ending in .git", repo.GitDir)
	}
	if filepath.Dir(repo.GitDir) != repo.Root {
		t.Errorf("GitDir %q is not directly under Root %q", repo.GitDir, repo.Root)
	}
	if repo.SessionDir() != filepath.Join(repo.GitDir, "rebase-apply") {
		t.Errorf("SessionDir() = %q, want %q", repo.SessionDir(), filepath.Join(repo.GitDir, "rebase-apply"))
	}
}
