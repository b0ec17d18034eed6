// Package unidiff implements just enough of unified-diff parsing and
// application to drive the in-process Applier fake used by driver
// tests. It is not a general-purpose patch tool: it understands a
// single textual hunk format (the kind "git diff" emits for text
// files) and nothing about binary patches, renames, or fuzz matching.
package unidiff

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// FileDiff is one file's worth of a multi-file unified diff.
type FileDiff struct {
	OldPath string // "" if the file is being created
	NewPath string // "" if the file is being deleted
	Hunks   []Hunk
}

// Hunk is a single "@@ -a,b +c,d @@" block and its body lines.
type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Lines              []string // each prefixed with ' ', '+', or '-'
}

// Parse splits a multi-file unified diff into per-file records.
func Parse(patch string) ([]FileDiff, error) {
	var files []FileDiff
	sc := bufio.NewScanner(strings.NewReader(patch))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var cur *FileDiff
	var hunk *Hunk
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "--- "):
			files = appendCur(files, cur)
			cur = &FileDiff{}
			hunk = nil
			cur.OldPath = trimGitPrefix(line[4:])
		case strings.HasPrefix(line, "+++ "):
			if cur == nil {
				cur = &FileDiff{}
			}
			cur.NewPath = trimGitPrefix(line[4:])
		case strings.HasPrefix(line, "@@ "):
			if cur == nil {
				return nil, fmt.Errorf("unidiff: hunk header before file header: %q", line)
			}
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			cur.Hunks = append(cur.Hunks, h)
			hunk = &cur.Hunks[len(cur.Hunks)-1]
		case hunk != nil && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")):
			hunk.Lines = append(hunk.Lines, line)
		case strings.HasPrefix(line, "diff --git") || strings.HasPrefix(line, "index "):
			// Ignore the git-specific envelope lines.
		default:
			// Tolerate blank lines and anything else between file blocks.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	files = appendCur(files, cur)
	return files, nil
}

func appendCur(files []FileDiff, cur *FileDiff) []FileDiff {
	if cur == nil {
		return files
	}
	return append(files, *cur)
}

func trimGitPrefix(path string) string {
	path = strings.TrimSpace(path)
	if path == "/dev/null" {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, "a/"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(path, "b/"); ok {
		return rest
	}
	return path
}

func parseHunkHeader(line string) (Hunk, error) {
	// "@@ -a,b +c,d @@" (b and d default to 1 if omitted)
	body := strings.TrimPrefix(line, "@@ ")
	end := strings.Index(body, " @@")
	if end < 0 {
		return Hunk{}, fmt.Errorf("unidiff: malformed hunk header %q", line)
	}
	body = body[:end]
	fields := strings.Fields(body)
	if len(fields) != 2 || fields[0][0] != '-' || fields[1][0] != '+' {
		return Hunk{}, fmt.Errorf("unidiff: malformed hunk header %q", line)
	}
	os_, ol, err := parseRange(fields[0][1:])
	if err != nil {
		return Hunk{}, err
	}
	ns, nl, err := parseRange(fields[1][1:])
	if err != nil {
		return Hunk{}, err
	}
	return Hunk{OldStart: os_, OldLines: ol, NewStart: ns, NewLines: nl}, nil
}

func parseRange(s string) (start, count int, err error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		start, err = strconv.Atoi(s[:i])
		if err != nil {
			return 0, 0, err
		}
		count, err = strconv.Atoi(s[i+1:])
		return start, count, err
	}
	start, err = strconv.Atoi(s)
	return start, 1, err
}

// Apply reconstructs the new content of a file given its old content
// (nil/empty for a newly created file) and the hunks that modify it.
// Hunks are expected in ascending order of OldStart, as they appear in
// a well-formed diff.
func Apply(old []byte, hunks []Hunk) ([]byte, error) {
	oldLines := splitLinesKeepEnd(old)
	var out strings.Builder
	oldIdx := 0 // 0-based index into oldLines

	for _, h := range hunks {
		target := h.OldStart - 1
		if h.OldLines == 0 {
			target = h.OldStart
		}
		for oldIdx < target && oldIdx < len(oldLines) {
			out.WriteString(oldLines[oldIdx])
			oldIdx++
		}
		for _, hl := range h.Lines {
			tag, text := hl[0], hl[1:]
			switch tag {
			case ' ':
				if oldIdx < len(oldLines) {
					out.WriteString(oldLines[oldIdx])
					oldIdx++
				} else {
					out.WriteString(text + "\n")
				}
			case '-':
				if oldIdx < len(oldLines) {
					oldIdx++
				}
			case '+':
				out.WriteString(text + "\n")
			}
		}
	}
	for oldIdx < len(oldLines) {
		out.WriteString(oldLines[oldIdx])
		oldIdx++
	}
	return []byte(out.String()), nil
}

func splitLinesKeepEnd(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var lines []string
	s := string(data)
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}
