// Package vcsfake is an in-process stand-in for vcs.Backend, built for
// driver tests that need to run the apply/commit loop many times
// without spawning git subprocesses. It delegates mail splitting and
// parsing to the mboxsplit package and patch application to unidiff,
// and simulates the index, the commit graph, and ref storage with
// plain Go maps, hashing tree and commit objects the same way real
// git does (via the objects package) so tests can assert on the
// resulting commit shape.
package vcsfake

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/creachadair/gitam/internal/mboxsplit"
	"github.com/creachadair/gitam/internal/objects"
	"github.com/creachadair/gitam/internal/unidiff"
	"github.com/creachadair/gitam/internal/vcs"
)

// Backend is a fake vcs.Backend backed entirely by in-memory state. It
// is safe for concurrent use, though drivers are expected to call it
// sequentially.
type Backend struct {
	mu sync.Mutex

	worktree map[string][]byte    // path -> current blob content
	blobs    map[string][]byte    // hash -> blob content
	trees    map[string]objects.Tree
	commits  map[string]objects.Commit
	refs     map[string]string
	Reflog   []ReflogEntry

	// ApplyErr, when set, is returned by the next ApplyToIndex call and
	// then cleared, letting tests simulate a "patch does not apply"
	// failure without crafting an unparseable patch.
	ApplyErr error
}

// ReflogEntry records one UpdateRef call, in order.
type ReflogEntry struct {
	Ref, Old, New, Message string
}

// New returns an empty fake repository with no commits and no refs.
func New() *Backend {
	return &Backend{
		worktree: make(map[string][]byte),
		blobs:    make(map[string][]byte),
		trees:    make(map[string]objects.Tree),
		commits:  make(map[string]objects.Commit),
		refs:     make(map[string]string),
	}
}

// Seed sets the initial worktree content, as if checked out from some
// prior commit.
func (b *Backend) Seed(files map[string][]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, data := range files {
		b.worktree[name] = append([]byte(nil), data...)
	}
}

// Worktree returns a snapshot of the current index/worktree content.
func (b *Backend) Worktree() map[string][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]byte, len(b.worktree))
	for k, v := range b.worktree {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// Split implements vcs.Splitter by delegating to mboxsplit.
func (b *Backend) Split(ctx context.Context, sessionDir string, prec int, paths []string) (int, error) {
	return mboxsplit.Split(sessionDir, prec, paths)
}

// Parse implements vcs.MailParser by delegating to mboxsplit.
func (b *Backend) Parse(ctx context.Context, patchPath, msgPath, diffPath, infoPath string) error {
	return mboxsplit.ParseMail(patchPath, msgPath, diffPath, infoPath)
}

// ApplyToIndex implements vcs.Applier using the unidiff engine.
func (b *Backend) ApplyToIndex(ctx context.Context, patchPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ApplyErr != nil {
		err := b.ApplyErr
		b.ApplyErr = nil
		return err
	}
	raw, err := os.ReadFile(patchPath)
	if err != nil {
		return err
	}
	files, err := unidiff.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("vcsfake: parsing patch: %w", err)
	}
	for _, f := range files {
		if f.NewPath == "" {
			delete(b.worktree, f.OldPath)
			continue
		}
		old := b.worktree[f.OldPath]
		next, err := unidiff.Apply(old, f.Hunks)
		if err != nil {
			return fmt.Errorf("vcsfake: applying hunks to %s: %w", f.NewPath, err)
		}
		if f.OldPath != "" && f.OldPath != f.NewPath {
			delete(b.worktree, f.OldPath)
		}
		b.worktree[f.NewPath] = next
	}
	return nil
}

// WriteTree implements vcs.TreeWriter: it hashes every worktree blob
// and assembles a single flat tree object from them. Nested paths are
// not split into subtrees; tests that need directory structure should
// cover it at the unidiff/objects layer directly.
func (b *Backend) WriteTree(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.worktree))
	for name := range b.worktree {
		names = append(names, name)
	}
	sort.Strings(names)

	var tree objects.Tree
	for _, name := range names {
		content := b.worktree[name]
		hash, _, err := objects.HashAndDeflate("blob", content)
		if err != nil {
			return "", err
		}
		b.blobs[hash] = content
		tree = append(tree, objects.Entry{Mode: 0100644, Name: name, Hash: hash})
	}
	body, err := tree.Marshal()
	if err != nil {
		return "", err
	}
	hash, _, err := objects.HashAndDeflate("tree", body)
	if err != nil {
		return "", err
	}
	b.trees[hash] = tree
	return hash, nil
}

// CommitTree implements vcs.CommitWriter.
func (b *Backend) CommitTree(ctx context.Context, tree string, parents []string, author, committer vcs.Ident, message string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.trees[tree]; !ok {
		return "", fmt.Errorf("vcsfake: unknown tree %s", tree)
	}
	c := objects.Commit{
		Tree:      tree,
		Parents:   append([]string(nil), parents...),
		Author:    toObjectIdent(author),
		Committer: toObjectIdent(committer),
		Message:   message,
	}
	hash, _, err := objects.HashAndDeflate("commit", c.Marshal())
	if err != nil {
		return "", err
	}
	b.commits[hash] = c
	return hash, nil
}

// ResolveRef implements vcs.RefUpdater's read side.
func (b *Backend) ResolveRef(ctx context.Context, ref string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hash, ok := b.refs[ref]
	return hash, ok, nil
}

// UpdateRef implements vcs.RefUpdater's write side, refusing to move a
// ref whose current value doesn't match oldValue (when oldValue is
// non-empty), the same compare-and-swap semantics "git update-ref"
// applies.
func (b *Backend) UpdateRef(ctx context.Context, ref, newValue, oldValue, reflogMessage string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur := b.refs[ref]
	if oldValue != "" && cur != oldValue {
		return fmt.Errorf("vcsfake: ref %s changed (have %s, want %s)", ref, cur, oldValue)
	}
	b.refs[ref] = newValue
	b.Reflog = append(b.Reflog, ReflogEntry{Ref: ref, Old: cur, New: newValue, Message: reflogMessage})
	return nil
}

// Commit looks up a commit previously written by CommitTree, for
// assertions in tests.
func (b *Backend) Commit(hash string) (objects.Commit, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.commits[hash]
	return c, ok
}

// Tree looks up a tree previously written by WriteTree, for
// assertions in tests.
func (b *Backend) Tree(hash string) (objects.Tree, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.trees[hash]
	return t, ok
}

func toObjectIdent(id vcs.Ident) objects.Ident {
	oid, err := objects.ParseIdent(fmt.Sprintf("%s <%s> %s", id.Name, id.Email, id.Date))
	if err == nil {
		return oid
	}
	// id.Date is not in "seconds offset" form (e.g. an RFC 2822 date from
	// a mail header); keep it verbatim in Offset, with Seconds zero, so
	// such a timestamp doesn't abort the commit.
	return objects.Ident{Name: id.Name, Email: id.Email, Offset: id.Date}
}

var _ vcs.Backend = (*Backend)(nil)
