// Package vcs defines the capability interfaces the am driver uses for
// the version-control primitives it treats as external collaborators:
// splitting a patch series, extracting mail headers, applying a patch
// to the index, and writing the resulting tree, commit, and ref
// update. Production code fulfills these by invoking the real "git"
// plumbing as subprocesses (see Exec); tests substitute in-process
// fakes (see github.com/creachadair/gitam/internal/vcs/vcsfake, which
// builds on internal/mboxsplit) without spawning anything.
package vcs

import "context"

// Ident is a commit identity: name, email, and a date string already
// formatted the way the ident parser downstream expects.
type Ident struct {
	Name, Email, Date string
}

// Splitter decomposes one or more mbox/Maildir inputs into numbered
// patch files inside sessionDir, named by zero-padding 1..last to
// width prec, and reports last.
type Splitter interface {
	Split(ctx context.Context, sessionDir string, prec int, paths []string) (last int, err error)
}

// MailParser extracts headers and body from the mail message at
// patchPath, writing the extracted body to msgPath, the diff to
// diffPath, and the raw header dump to infoPath, as
// Subject:/Author:/Email:/Date: lines.
type MailParser interface {
	Parse(ctx context.Context, patchPath, msgPath, diffPath, infoPath string) error
}

// Applier applies a patch file to the repository's index in place.
type Applier interface {
	ApplyToIndex(ctx context.Context, patchPath string) error
}

// TreeWriter writes the current index out as a tree object and
// returns its hash.
type TreeWriter interface {
	WriteTree(ctx context.Context) (tree string, err error)
}

// CommitWriter creates a commit object from a tree, parent list, and
// author/committer identities, returning the new commit's hash.
type CommitWriter interface {
	CommitTree(ctx context.Context, tree string, parents []string, author, committer Ident, message string) (commit string, err error)
}

// RefUpdater resolves and updates references, recording a reflog
// entry for updates.
type RefUpdater interface {
	ResolveRef(ctx context.Context, ref string) (hash string, ok bool, err error)
	UpdateRef(ctx context.Context, ref, newValue, oldValue, reflogMessage string) error
}

// Backend bundles every capability the am driver depends on. Exec
// satisfies it by shelling out to git; fakes used in tests satisfy it
// entirely in-process.
type Backend interface {
	Splitter
	MailParser
	Applier
	TreeWriter
	CommitWriter
	RefUpdater
}
