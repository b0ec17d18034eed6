package amrun

import (
	"bytes"
	"context"
	"fmt"

	"github.com/creachadair/gitam/internal/authorscript"
	"github.com/creachadair/gitam/internal/patchfmt"
	"github.com/creachadair/gitam/internal/session"
	"github.com/creachadair/gitam/internal/vcs"
)

// UnrecognizedFormatError reports that the session controller could
// not classify the requested input; callers turn this into a
// user-visible, exit-128 failure at setup time.
type UnrecognizedFormatError struct {
	Paths []string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("patch format not recognized for %v", e.Paths)
}

// Controller is the top-level orchestrator: it decides whether to
// resume an existing session or set up a new one, then hands off to a
// Driver.
type Controller struct {
	Splitter vcs.Splitter
}

// Open initializes a State rooted at dir, resuming an in-progress
// session if one exists there, or setting a new one up by detecting
// the patch format (unless patchFormat is already "mbox", the only
// value this version accepts) and invoking the splitter over paths.
//
// On any setup failure after the session directory is created, the
// half-built session is destroyed before the error is returned.
func (c *Controller) Open(ctx context.Context, dir string, patchFormat string, paths []string) (*State, error) {
	store := session.New(dir)
	s := newState(store)

	inProgress, err := store.InProgress()
	if err != nil {
		return nil, fmt.Errorf("amrun: checking session state: %w", err)
	}
	if inProgress {
		if err := c.resume(s); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := c.setup(ctx, s, patchFormat, paths); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Controller) resume(s *State) error {
	store := s.store
	cur, err := store.ReadInt("next")
	if err != nil {
		return fmt.Errorf("amrun: reading session cursor: %w", err)
	}
	last, err := store.ReadInt("last")
	if err != nil {
		return fmt.Errorf("amrun: reading session bound: %w", err)
	}
	s.cur, s.last = cur, last

	if data, err := store.ReadScalar("author-script", false); err != nil {
		return fmt.Errorf("amrun: reading author-script: %w", err)
	} else if data != nil {
		id, err := authorscript.Read(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("amrun: malformed author-script: %w", err)
		}
		s.authorName, s.authorEmail, s.authorDate = id.Name, id.Email, id.Date
	}

	if data, err := store.ReadScalar("final-commit", false); err != nil {
		return fmt.Errorf("amrun: reading final-commit: %w", err)
	} else if data != nil {
		s.msg = string(data)
	}
	return nil
}

func (c *Controller) setup(ctx context.Context, s *State, patchFormat string, paths []string) error {
	store := s.store

	format := patchfmt.Mbox
	if patchFormat == "" {
		detected, err := patchfmt.Detect(paths)
		if err != nil {
			return fmt.Errorf("amrun: detecting patch format: %w", err)
		}
		if detected == patchfmt.Unknown {
			return &UnrecognizedFormatError{Paths: paths}
		}
		format = detected
	} else if patchFormat != "mbox" {
		return fmt.Errorf("amrun: unsupported --patch-format %q", patchFormat)
	}
	_ = format // only "mbox" is implemented in this version; the value is validated, not branched on.

	if err := store.Create(); err != nil {
		return fmt.Errorf("amrun: creating session directory: %w", err)
	}

	last, err := c.Splitter.Split(ctx, store.Dir, Prec, paths)
	if err != nil {
		store.Destroy()
		return fmt.Errorf("amrun: splitting patch series: %w", err)
	}

	s.cur, s.last = 1, last
	if err := store.WriteInt("next", s.cur); err != nil {
		store.Destroy()
		return fmt.Errorf("amrun: writing cursor: %w", err)
	}
	if err := store.WriteInt("last", s.last); err != nil {
		store.Destroy()
		return fmt.Errorf("amrun: writing bound: %w", err)
	}
	return nil
}
