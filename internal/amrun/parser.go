package amrun

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/creachadair/gitam/internal/vcs"
)

// mailSystemInternalData is the Author: value the skip filter checks
// for: pine's sentinel for a non-patch housekeeping message that can
// appear at the head of an mbox exported from certain mail clients.
const mailSystemInternalData = "Mail System Internal Data"

// EmptyPatchError reports that a patch's body was empty after the
// mail header parser ran.
type EmptyPatchError struct {
	PatchPath string
}

func (e *EmptyPatchError) Error() string {
	return fmt.Sprintf("patch %q is empty; use --skip to drop it or --abort to cancel the series", e.PatchPath)
}

// parsePatch runs the mail header parser over the patch at cur's
// filename and folds its output into s. It reports
// skip=true when the skip filter fires (the patch is pine's internal
// data marker, not a real patch), in which case s.msg and the author
// fields are left in whatever state the parser produced and the
// caller must not commit.
func parsePatch(ctx context.Context, parser vcs.MailParser, s *State) (skip bool, err error) {
	patchPath := s.store.PatchPath(s.cur, Prec)
	msgPath := s.store.Path("msg")
	diffPath := s.store.Path("patch")
	infoPath := s.store.Path("info")

	if err := parser.Parse(ctx, patchPath, msgPath, diffPath, infoPath); err != nil {
		return false, fmt.Errorf("amrun: parsing patch %d: %w", s.cur, err)
	}

	if err := foldInfo(infoPath, s); err != nil {
		return false, err
	}

	if s.authorName == mailSystemInternalData {
		return true, nil
	}

	fi, err := os.Stat(diffPath)
	if err != nil || fi.Size() == 0 {
		return false, &EmptyPatchError{PatchPath: diffPath}
	}

	msgBody, err := os.ReadFile(msgPath)
	if err != nil {
		return false, fmt.Errorf("amrun: reading message body: %w", err)
	}
	s.msg = stripspace(s.msg + "\n\n" + string(msgBody))
	return false, nil
}

// foldInfo reads the header dump the mail parser wrote to infoPath
// and folds recognized prefixes into s. Repeated Author:/Email:/Date:
// headers are kept as only their first occurrence: newline-joining
// every occurrence would hand the identity formatter a value it can't
// parse, so the first value wins and later repeats are ignored.
// Repeated Subject: lines are all appended to s.msg, newline-separated.
func foldInfo(infoPath string, s *State) error {
	f, err := os.Open(infoPath)
	if err != nil {
		return fmt.Errorf("amrun: reading parsed headers: %w", err)
	}
	defer f.Close()

	haveName, haveEmail, haveDate := false, false, false
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "Subject: "):
			rest := strings.TrimPrefix(line, "Subject: ")
			if s.msg == "" {
				s.msg = rest
			} else {
				s.msg += "\n" + rest
			}
		case strings.HasPrefix(line, "Author: ") && !haveName:
			s.authorName = strings.TrimPrefix(line, "Author: ")
			haveName = true
		case strings.HasPrefix(line, "Email: ") && !haveEmail:
			s.authorEmail = strings.TrimPrefix(line, "Email: ")
			haveEmail = true
		case strings.HasPrefix(line, "Date: ") && !haveDate:
			s.authorDate = strings.TrimPrefix(line, "Date: ")
			haveDate = true
		}
	}
	return sc.Err()
}

// stripspace normalizes a commit message body the way the external
// "stripspace" step does: trailing whitespace is trimmed from every
// line, runs of two or more blank lines collapse to one, and leading
// and trailing blank lines are removed entirely.
func stripspace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}

	var out []string
	blank := false
	for _, l := range lines {
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
