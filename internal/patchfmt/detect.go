// Package patchfmt classifies patch-series inputs so the session
// controller knows how to split them, and rejects inputs that do not
// look like mail at all.
package patchfmt

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/creachadair/gitam/scanner"
)

// Format identifies the shape of a patch-series input.
type Format int

const (
	// Unknown means detection could not classify the input.
	Unknown Format = iota
	// Mbox means the input is (or defaults to) mbox-formatted mail.
	Mbox
)

func (f Format) String() string {
	if f == Mbox {
		return "mbox"
	}
	return "unknown"
}

// UnrecognizedError describes an input path that could not be
// classified, with the source location of the line that broke the
// is_email check, if one was found. Detect does not return it: Detect
// reports such input as Unknown with a nil error.
type UnrecognizedError struct {
	Path string
	At   scanner.Location
}

func (e *UnrecognizedError) Error() string {
	if e.At.IsValid() {
		return fmt.Sprintf("patch format detection failed for %q (at %s)", e.Path, e.At)
	}
	return fmt.Sprintf("patch format detection failed for %q", e.Path)
}

// Detect classifies an ordered list of path tokens (possibly empty;
// possibly containing the literal "-" for stdin) as Mbox (which covers
// a single message with mail headers) or Unknown. It never returns an error for a legitimately Unknown result —
// callers distinguish Unknown from I/O failure by the error return.
func Detect(paths []string) (Format, error) {
	if len(paths) == 0 || paths[0] == "-" {
		return Mbox, nil
	}
	if fi, err := os.Stat(paths[0]); err == nil && fi.IsDir() {
		return Mbox, nil
	} else if err != nil && !os.IsNotExist(err) {
		return Unknown, err
	}

	f, err := os.Open(paths[0])
	if err != nil {
		return Unknown, err
	}
	defer f.Close()

	lines, err := firstNonBlankLines(f, 3)
	if err != nil {
		return Unknown, err
	}
	if len(lines) > 0 && (strings.HasPrefix(lines[0], "From ") || strings.HasPrefix(lines[0], "From: ")) {
		return Mbox, nil
	}

	allNonEmpty := len(lines) == 3
	for _, l := range lines {
		if l == "" {
			allNonEmpty = false
		}
	}
	if allNonEmpty {
		ok, _, err := isEmail(paths[0])
		if err != nil {
			return Unknown, err
		}
		if ok {
			return Mbox, nil
		}
		return Unknown, nil
	}
	return Unknown, nil
}

// firstNonBlankLines reads up to n lines from f, skipping leading blank
// lines before the first one, trimming each returned line. It may
// return fewer than n lines at EOF.
func firstNonBlankLines(f *os.File, n int) ([]string, error) {
	sc := bufio.NewScanner(f)
	var out []string
	sawFirst := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !sawFirst {
			if line == "" {
				continue
			}
			sawFirst = true
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isEmail implements the is_email heuristic: scan the
// header-area lines of filename (those preceding the first empty
// line), skip folded continuations, and require every remaining line
// to match "[!-9;-~]+ :" with the colon not in the first position.
// EOF or a blank line terminates scanning positively. On a failing
// line, the returned Location names it.
func isEmail(filename string) (bool, scanner.Location, error) {
	f, err := os.Open(filename)
	if err != nil {
		return false, scanner.Location{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lnum := 0
	for sc.Scan() {
		lnum++
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			break
		}
		if line[0] == '\t' || line[0] == ' ' {
			continue
		}
		if !looksLikeHeader(line) {
			return false, scanner.AtLine(lnum), nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, scanner.Location{}, err
	}
	return true, scanner.Location{}, nil
}

// looksLikeHeader reports whether line matches the regular language
// "[!-9;-~]+ :" — one or more printable ASCII bytes in 0x21..0x39 or
// 0x3B..0x7E, followed by a colon that is not the first character.
func looksLikeHeader(line string) bool {
	for i := 0; i < len(line); i++ {
		c := line[i]
		if (c >= '!' && c <= '9') || (c >= ';' && c <= '~') {
			continue
		}
		if c == ':' && i != 0 {
			return true
		}
		return false
	}
	return false
}
