package vcsfake

import (
	"context"
	"os"
	"testing"

	"github.com/creachadair/gitam/internal/vcs"
)

func TestApplyWriteCommitUpdateRef(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.Seed(map[string][]byte{"f": []byte("line one\nline two\nline three\n")})

	dir := t.TempDir()
	patch := "--- a/f\n+++ b/f\n@@ -1,3 +1,3 @@\n line one\n-line two\n+line TWO\n line three\n"
	patchPath := dir + "/0001"
	if err := writeFile(patchPath, patch); err != nil {
		t.Fatal(err)
	}

	if err := b.ApplyToIndex(ctx, patchPath); err != nil {
		t.Fatalf("ApplyToIndex: %v", err)
	}
	wt := b.Worktree()
	if got := string(wt["f"]); got != "line one\nline TWO\nline three\n" {
		t.Fatalf("worktree[f] = %q", got)
	}

	tree, err := b.WriteTree(ctx)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if tree == "" {
		t.Fatal("WriteTree returned empty hash")
	}

	author := vcs.Ident{Name: "A U Thor", Email: "author@example.com", Date: "1112911993 +0000"}
	commit, err := b.CommitTree(ctx, tree, nil, author, author, "a commit message\n")
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	got, ok := b.Commit(commit)
	if !ok {
		t.Fatalf("commit %s not found after CommitTree", commit)
	}
	if got.Tree != tree {
		t.Errorf("commit tree = %s, want %s", got.Tree, tree)
	}
	if got.Author.Name != "A U Thor" || got.Author.Email != "author@example.com" {
		t.Errorf("commit author = %+v", got.Author)
	}

	if _, ok, err := b.ResolveRef(ctx, "refs/heads/main"); err != nil || ok {
		t.Fatalf("ResolveRef before update = (%v, %v), want (false, nil)", ok, err)
	}
	if err := b.UpdateRef(ctx, "refs/heads/main", commit, "", "am: a commit message"); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	hash, ok, err := b.ResolveRef(ctx, "refs/heads/main")
	if err != nil || !ok || hash != commit {
		t.Fatalf("ResolveRef after update = (%q, %v, %v), want (%q, true, nil)", hash, ok, err, commit)
	}
	if len(b.Reflog) != 1 || b.Reflog[0].Message != "am: a commit message" {
		t.Fatalf("Reflog = %+v", b.Reflog)
	}

	// A stale compare-and-swap must be rejected.
	if err := b.UpdateRef(ctx, "refs/heads/main", "deadbeef", "notthecurrentvalue", "am: bogus"); err == nil {
		t.Fatal("UpdateRef with stale oldValue should have failed")
	}
}

func TestApplyCreateAndDeleteFile(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.Seed(map[string][]byte{"doomed": []byte("bye\n")})

	dir := t.TempDir()
	create := "diff --git a/new b/new\nnew file mode 100644\n--- /dev/null\n+++ b/new\n@@ -0,0 +1 @@\n+hi\n"
	del := "diff --git a/doomed b/doomed\ndeleted file mode 100644\n--- a/doomed\n+++ /dev/null\n@@ -1 +0,0 @@\n-bye\n"

	createPath, delPath := dir+"/0001", dir+"/0002"
	if err := writeFile(createPath, create); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(delPath, del); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyToIndex(ctx, createPath); err != nil {
		t.Fatalf("ApplyToIndex(create): %v", err)
	}
	if err := b.ApplyToIndex(ctx, delPath); err != nil {
		t.Fatalf("ApplyToIndex(delete): %v", err)
	}
	wt := b.Worktree()
	if _, ok := wt["doomed"]; ok {
		t.Error("doomed file still present after delete patch")
	}
	if string(wt["new"]) != "hi\n" {
		t.Errorf("new file content = %q", wt["new"])
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0666)
}
