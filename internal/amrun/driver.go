package amrun

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/creachadair/gitam/internal/authorscript"
	"github.com/creachadair/gitam/internal/config"
	"github.com/creachadair/gitam/internal/vcs"
)

// headRef is the reference the driver advances with each commit. The
// core only ever operates on the branch currently checked out.
const headRef = "HEAD"

// ApplyFailedError reports that the external patch applicator
// rejected a patch. The session is left intact so a later run can
// resume after the caller fixes the conflict out of band.
type ApplyFailedError struct {
	Index   int
	Subject string
	Err     error
}

func (e *ApplyFailedError) Error() string {
	return fmt.Sprintf("patch failed at %04d %s: %v", e.Index, e.Subject, e.Err)
}

func (e *ApplyFailedError) Unwrap() error { return e.Err }

// Driver runs the per-patch apply/commit loop against a vcs.Backend
// and an already-initialized State.
type Driver struct {
	Backend vcs.Backend
	Config  config.Config
	Stdout  io.Writer
}

// Run advances the driver from the current cursor to the end of the
// series, committing one patch at a time, and destroys the session
// once the cursor exits the range.
func (d *Driver) Run(ctx context.Context, s *State) error {
	for s.cur <= s.last {
		if err := d.step(ctx, s); err != nil {
			return err
		}
	}
	return s.store.Destroy()
}

func (d *Driver) step(ctx context.Context, s *State) error {
	patchPath := s.store.PatchPath(s.cur, Prec)
	if _, err := os.Stat(patchPath); os.IsNotExist(err) {
		return d.advance(s)
	} else if err != nil {
		return fmt.Errorf("amrun: checking patch %d: %w", s.cur, err)
	}

	skip, err := parsePatch(ctx, d.Backend, s)
	if err != nil {
		return err
	}
	if skip {
		return d.advance(s)
	}

	if err := d.writeAuthorScript(s); err != nil {
		return err
	}
	if err := s.store.WriteScalar("final-commit", []byte(s.msg)); err != nil {
		return fmt.Errorf("amrun: writing final-commit: %w", err)
	}

	subject := firstLine(s.msg)
	fmt.Fprintf(d.Stdout, "Applying: %s\n", subject)

	if err := d.Backend.ApplyToIndex(ctx, patchPath); err != nil {
		fmt.Fprintf(d.Stdout, "Patch failed at %04d %s\n", s.cur, subject)
		if d.Config.Advice.AMWorkDir {
			fmt.Fprintf(d.Stdout, "The copy of the patch that failed is found in: %s\n", patchPath)
		}
		return &ApplyFailedError{Index: s.cur, Subject: subject, Err: err}
	}

	commit, err := d.commit(ctx, s)
	if err != nil {
		return err
	}
	if err := d.Backend.UpdateRef(ctx, headRef, commit, "", d.reflogMessage(subject)); err != nil {
		return fmt.Errorf("amrun: updating %s: %w", headRef, err)
	}

	return d.advance(s)
}

func (d *Driver) commit(ctx context.Context, s *State) (string, error) {
	tree, err := d.Backend.WriteTree(ctx)
	if err != nil {
		return "", fmt.Errorf("amrun: writing tree: %w", err)
	}

	var parents []string
	parent, ok, err := d.Backend.ResolveRef(ctx, headRef)
	if err != nil {
		return "", fmt.Errorf("amrun: resolving %s: %w", headRef, err)
	}
	if ok {
		parents = []string{parent}
	} else {
		fmt.Fprintln(d.Stdout, "applying to an empty history")
	}

	ident, err := d.readAuthorScript(s)
	if err != nil {
		return "", err
	}
	committer := committerIdent()

	commit, err := d.Backend.CommitTree(ctx, tree, parents, ident, committer, s.msg)
	if err != nil {
		return "", fmt.Errorf("amrun: creating commit: %w", err)
	}
	return commit, nil
}

// readAuthorScript re-reads the author-script file the driver just
// wrote, using authorscript's strict parser rather than trusting the
// in-memory fields, so a round-trip failure (which would indicate a
// quoting bug rather than bad input, since we wrote the file
// ourselves) is caught before it reaches the commit object.
func (d *Driver) readAuthorScript(s *State) (vcs.Ident, error) {
	data, err := os.ReadFile(s.store.Path("author-script"))
	if err != nil {
		return vcs.Ident{}, fmt.Errorf("amrun: reading back author-script: %w", err)
	}
	id, err := authorscript.Read(strings.NewReader(string(data)))
	if err != nil {
		return vcs.Ident{}, fmt.Errorf("amrun: author-script round-trip: %w", err)
	}
	return vcs.Ident{Name: id.Name, Email: id.Email, Date: id.Date}, nil
}

func (d *Driver) writeAuthorScript(s *State) error {
	var b strings.Builder
	if err := authorscript.Write(&b, authorscript.Ident{
		Name:  s.authorName,
		Email: s.authorEmail,
		Date:  s.authorDate,
	}); err != nil {
		return err
	}
	if err := s.store.WriteScalar("author-script", []byte(b.String())); err != nil {
		return fmt.Errorf("amrun: writing author-script: %w", err)
	}
	return nil
}

// advance implements am_next: persist the cursor, then reset and
// delete per-patch ephemeral state. The order matters: next is
// durable before the in-memory and on-disk per-patch state it
// describes is cleared, so a crash between these two steps always
// leaves the session either still describing the committed patch
// (safe to reprocess: reprocessing just overwrites it) or already
// clean for the next one.
func (d *Driver) advance(s *State) error {
	s.cur++
	if err := s.store.WriteInt("next", s.cur); err != nil {
		return fmt.Errorf("amrun: advancing cursor: %w", err)
	}
	s.resetPerPatch()
	if err := s.store.Remove("author-script"); err != nil {
		return fmt.Errorf("amrun: clearing author-script: %w", err)
	}
	if err := s.store.Remove("final-commit"); err != nil {
		return fmt.Errorf("amrun: clearing final-commit: %w", err)
	}
	return nil
}

// reflogMessage formats the reflog-entry message for the commit of the
// current patch. GIT_REFLOG_ACTION, if set, always wins; otherwise the
// configured ReflogAction is used, falling back to "am" if that is
// also unset (e.g. Config is the zero value in a test).
func (d *Driver) reflogMessage(subject string) string {
	action := os.Getenv("GIT_REFLOG_ACTION")
	if action == "" {
		action = d.Config.ReflogAction
	}
	if action == "" {
		action = "am"
	}
	return action + ": " + subject
}

func committerIdent() vcs.Ident {
	name := os.Getenv("GIT_COMMITTER_NAME")
	email := os.Getenv("GIT_COMMITTER_EMAIL")
	if name == "" {
		name = "gitam"
	}
	if email == "" {
		email = "gitam@localhost"
	}
	now := time.Now()
	return vcs.Ident{
		Name:  name,
		Email: email,
		Date:  fmt.Sprintf("%d %s", now.Unix(), now.Format("-0700")),
	}
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
