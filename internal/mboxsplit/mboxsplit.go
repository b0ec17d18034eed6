// Package mboxsplit implements an in-process mbox splitter, used by
// tests as a fake for the vcs.Splitter capability so the am driver can
// be exercised without spawning "git mailsplit". It scans for lines
// beginning "From ", treating everything up to the next such line as
// one message.
package mboxsplit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/creachadair/atomicfile"
)

var fromLineRE = regexp.MustCompile(`(?m)^From .*\n`)

// Messages splits mbox-formatted data read from r into individual
// raw messages, in order.
func Messages(r io.Reader) ([][]byte, error) {
	var buf bytes.Buffer
	var msgs [][]byte

	atEOF := false
	for {
		m := fromLineRE.FindIndex(buf.Bytes())
		if m == nil {
			if atEOF {
				break
			}
			var tmp [1 << 16]byte
			n, err := r.Read(tmp[:])
			buf.Write(tmp[:n])
			if err == io.EOF {
				atEOF = true
			} else if err != nil {
				return nil, err
			}
			continue
		}

		msg := buf.Next(m[0])
		if len(msg) != 0 {
			msgs = append(msgs, append([]byte(nil), msg...))
		}
		buf.Next(m[1] - m[0]) // drop the separator line
	}
	if buf.Len() != 0 {
		msgs = append(msgs, append([]byte(nil), buf.Bytes()...))
	}
	return msgs, nil
}

// Split reads mbox data from each of paths in turn (or from stdin for
// the literal path "-", or every regular file inside a directory for
// a Maildir-shaped path), and writes one numbered, zero-padded file
// per message into dir, starting at 1. It returns the index of the
// last message written.
func Split(dir string, prec int, paths []string) (last int, err error) {
	var all [][]byte
	for _, p := range paths {
		msgs, err := readOnePath(p)
		if err != nil {
			return 0, fmt.Errorf("splitting %q: %w", p, err)
		}
		all = append(all, msgs...)
	}
	for i, msg := range all {
		name := fmt.Sprintf("%0*d", prec, i+1)
		if err := atomicfile.WriteData(filepath.Join(dir, name), msg, 0666); err != nil {
			return 0, fmt.Errorf("writing patch %s: %w", name, err)
		}
	}
	return len(all), nil
}

func readOnePath(p string) ([][]byte, error) {
	if p == "-" {
		return Messages(os.Stdin)
	}
	fi, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return readMaildir(p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Messages(f)
}

// readMaildir reads every regular file directly inside a Maildir-style
// directory (ignoring "tmp"/"new"/"cur" structure nuances beyond plain
// files) as a single message each, in filename order.
func readMaildir(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var msgs [][]byte
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, data)
	}
	return msgs, nil
}

// IndexWidth returns the number of decimal digits needed to represent
// n, which is at least 1. It exists so callers that recompute prec
// from a count (rather than the fixed prec=4 the session uses) stay
// consistent with how filenames are actually formatted.
func IndexWidth(n int) int {
	if n < 1 {
		return 1
	}
	return len(strconv.Itoa(n))
}
