package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/creachadair/ffs/blob"
	"github.com/creachadair/ffs/blob/memstore"
	"github.com/creachadair/ffs/blob/store"
	"github.com/creachadair/gitam/internal/archive"
	"github.com/creachadair/gitam/internal/objects"
)

// writeLoose deflates kind/body the way a real git object database
// would and writes it at gitDir/objects/xx/yyyy…, returning its hash.
func writeLoose(t *testing.T, gitDir, kind string, body []byte) string {
	t.Helper()
	hash, compressed, err := objects.HashAndDeflate(kind, body)
	if err != nil {
		t.Fatalf("HashAndDeflate(%s): %v", kind, err)
	}
	dir := filepath.Join(gitDir, "objects", hash[:2])
	if err := os.MkdirAll(dir, 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, hash[2:]), compressed, 0666); err != nil {
		t.Fatal(err)
	}
	return hash
}

// buildSmallTree writes a small commit/tree/blob graph directly into
// gitDir's loose object store: a root tree with one blob and one
// subtree, the subtree holding a second blob, and a parentless commit
// pointing at the root tree. It returns the commit hash and the set of
// every object hash reachable from it.
func buildSmallTree(t *testing.T, gitDir string) (commitHash string, reachable []string) {
	t.Helper()

	blobA := writeLoose(t, gitDir, "blob", []byte("hello\n"))
	blobB := writeLoose(t, gitDir, "blob", []byte("world\n"))

	subtree := objects.Tree{{Mode: 0100644, Name: "a", Hash: blobA}}
	subBody, err := subtree.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	subtreeHash := writeLoose(t, gitDir, "tree", subBody)

	rootTree := objects.Tree{
		{Mode: 040000, Name: "sub", Hash: subtreeHash},
		{Mode: 0100644, Name: "b", Hash: blobB},
	}
	rootBody, err := rootTree.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	rootHash := writeLoose(t, gitDir, "tree", rootBody)

	ident := objects.Ident{Name: "A U Thor", Email: "author@example.com", Seconds: 1112911993, Offset: "+0000"}
	commit := objects.Commit{Tree: rootHash, Author: ident, Committer: ident, Message: "archived\n"}
	commitHash = writeLoose(t, gitDir, "commit", commit.Marshal())

	return commitHash, []string{commitHash, rootHash, subtreeHash, blobA, blobB}
}

func TestExportReachesEveryBlobAndCopiesExactlyTheReachableSet(t *testing.T) {
	gitDir := t.TempDir()
	commitHash, want := buildSmallTree(t, gitDir)
	sort.Strings(want)

	reg := store.Registry{"memory": memstore.Opener}
	dst, err := reg.Open(context.Background(), "memory:")
	if err != nil {
		t.Fatalf("opening memstore: %v", err)
	}
	defer blob.CloseStore(context.Background(), dst)

	src := objects.NewLooseStore(gitDir)
	stats, err := archive.Export(context.Background(), src, dst, []string{commitHash})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if stats.Visited != len(want) {
		t.Errorf("Visited = %d, want %d", stats.Visited, len(want))
	}
	if stats.Copied != len(want) {
		t.Errorf("Copied = %d, want %d", stats.Copied, len(want))
	}

	var got []string
	if err := dst.List(context.Background(), "", func(key string) error {
		got = append(got, key)
		return nil
	}); err != nil {
		t.Fatalf("List: %v", err)
	}
	sort.Strings(got)
	if len(got) != len(want) {
		t.Fatalf("destination has %d keys, want %d: %v", len(got), len(want), got)
	}
	for i, k := range want {
		if got[i] != k {
			t.Errorf("destination key[%d] = %q, want %q", i, got[i], k)
		}
	}

	for _, hash := range want {
		wantRaw, err := src.Raw(hash)
		if err != nil {
			t.Fatalf("Raw(%s): %v", hash, err)
		}
		gotRaw, err := dst.Get(context.Background(), hash)
		if err != nil {
			t.Fatalf("Get(%s): %v", hash, err)
		}
		if string(gotRaw) != string(wantRaw) {
			t.Errorf("destination object %s does not match source bytes", hash)
		}
	}
}

func TestExportUnreachableObjectIsNotCopied(t *testing.T) {
	gitDir := t.TempDir()
	commitHash, want := buildSmallTree(t, gitDir)
	// An object present in the source but not reachable from the root
	// commit must not appear in the export.
	orphan := writeLoose(t, gitDir, "blob", []byte("unreachable\n"))

	reg := store.Registry{"memory": memstore.Opener}
	dst, err := reg.Open(context.Background(), "memory:")
	if err != nil {
		t.Fatalf("opening memstore: %v", err)
	}
	defer blob.CloseStore(context.Background(), dst)

	src := objects.NewLooseStore(gitDir)
	stats, err := archive.Export(context.Background(), src, dst, []string{commitHash})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if stats.Copied != len(want) {
		t.Errorf("Copied = %d, want %d (orphan must be excluded)", stats.Copied, len(want))
	}
	if _, err := dst.Get(context.Background(), orphan); err == nil {
		t.Errorf("orphan blob %s was copied into the destination", orphan)
	}
}
