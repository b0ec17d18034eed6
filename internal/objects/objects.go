// Package objects encodes and decodes git's loose-object format: a
// zlib-deflated "<type> <size>\0<body>" framing, addressed by the
// SHA-1 of that framed byte string. It covers both directions: decode
// for inspecting and exporting existing objects, and encode for
// writing the trees and commits the apply driver produces.
package objects

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/creachadair/gitam/scanner"
)

// Ident is a commit author or committer identity in git's wire shape:
// "Name <email> seconds offset".
type Ident struct {
	Name    string
	Email   string
	Seconds int64
	Offset  string // e.g. "+0000"
}

func (id Ident) String() string {
	return fmt.Sprintf("%s <%s> %d %s", id.Name, id.Email, id.Seconds, id.Offset)
}

// ParseIdent parses the "Name <email> seconds offset" shape produced
// by String.
func ParseIdent(s string) (Ident, error) {
	open := strings.LastIndexByte(s, '<')
	close := strings.LastIndexByte(s, '>')
	if open < 0 || close < open {
		return Ident{}, fmt.Errorf("objects: invalid identity %q", s)
	}
	name := strings.TrimSpace(s[:open])
	email := s[open+1 : close]
	rest := strings.Fields(strings.TrimSpace(s[close+1:]))
	if len(rest) != 2 {
		return Ident{}, fmt.Errorf("objects: invalid identity timestamp in %q", s)
	}
	secs, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Ident{}, fmt.Errorf("objects: invalid timestamp in %q: %w", s, err)
	}
	return Ident{Name: name, Email: email, Seconds: secs, Offset: rest[1]}, nil
}

// Commit is the representation of a commit object.
type Commit struct {
	Tree      string
	Parents   []string
	Author    Ident
	Committer Ident
	Message   string
}

// Marshal renders c in git's commit object body format.
func (c Commit) Marshal() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "author %s\n", c.Author)
	fmt.Fprintf(&b, "committer %s\n", c.Committer)
	b.WriteByte('\n')
	b.WriteString(c.Message)
	return []byte(b.String())
}

// UnmarshalCommit parses a commit object body as produced by Marshal.
func UnmarshalCommit(data []byte) (Commit, error) {
	hdr, msg, ok := strings.Cut(string(data), "\n\n")
	if !ok {
		return Commit{}, errors.New("objects: invalid commit: no header/message separator")
	}
	var c Commit
	c.Message = msg
	for _, line := range strings.Split(hdr, "\n") {
		tag, rest, _ := strings.Cut(line, " ")
		var err error
		switch tag {
		case "tree":
			c.Tree = rest
		case "parent":
			c.Parents = append(c.Parents, rest)
		case "author":
			c.Author, err = ParseIdent(rest)
		case "committer":
			c.Committer, err = ParseIdent(rest)
		default:
			return Commit{}, fmt.Errorf("objects: invalid commit field %q", tag)
		}
		if err != nil {
			return Commit{}, fmt.Errorf("objects: invalid %s: %w", tag, err)
		}
	}
	return c, nil
}

// Entry is one element of a Tree.
type Entry struct {
	Mode uint32
	Hash string // hex SHA-1
	Name string
}

// IsDir reports whether the entry names a subtree.
func (e Entry) IsDir() bool { return e.Mode&0170000 == 040000 }

// Tree is the representation of a tree object: a list of entries, each
// a (mode, name, hash) triple. Marshal writes the entries in slice
// order; it does not sort them.
type Tree []Entry

// Marshal renders t in git's tree object body format: for each entry,
// the octal mode, a space, the name, a NUL, and the 20 raw hash bytes.
func (t Tree) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	for _, e := range t {
		raw, err := hexToRaw(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("objects: entry %q: %w", e.Name, err)
		}
		fmt.Fprintf(&buf, "%o %s", e.Mode, e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a tree object body as produced by Marshal.
func UnmarshalTree(data []byte) (Tree, error) {
	const hashSize = sha1.Size
	var t Tree
	i := 0
	for i < len(data) {
		j := bytes.IndexByte(data[i:], 0)
		if j < 0 || i+j+hashSize+1 > len(data) {
			return nil, fmt.Errorf("objects: offset %d: incomplete tree entry", i)
		}
		mtext, name, ok := strings.Cut(string(data[i:i+j]), " ")
		if !ok {
			return nil, fmt.Errorf("objects: offset %d: missing entry name", i)
		}
		mode, err := strconv.ParseUint(mtext, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("objects: offset %d: invalid mode: %w", i, err)
		}
		hashStart := i + j + 1
		t = append(t, Entry{
			Mode: uint32(mode),
			Name: name,
			Hash: fmt.Sprintf("%x", data[hashStart:hashStart+hashSize]),
		})
		i = hashStart + hashSize
	}
	return t, nil
}

// HashAndDeflate computes the loose-object framing "<kind> <len>\0<body>",
// its SHA-1 hex digest, and the zlib-compressed bytes as they would be
// written to objects/xx/yyyy….
func HashAndDeflate(kind string, body []byte) (hash string, compressed []byte, err error) {
	framed := append([]byte(fmt.Sprintf("%s %d\x00", kind, len(body))), body...)
	sum := sha1.Sum(framed)
	hash = fmt.Sprintf("%x", sum)

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(framed); err != nil {
		return "", nil, err
	}
	if err := zw.Close(); err != nil {
		return "", nil, err
	}
	return hash, buf.Bytes(), nil
}

// Inflate reverses HashAndDeflate's compression step and splits the
// framing header from the body, reporting the declared kind.
func Inflate(compressed []byte) (kind string, body []byte, err error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", nil, fmt.Errorf("objects: decompress: %w", err)
	}
	defer zr.Close()
	framed, err := io.ReadAll(zr)
	if err != nil {
		return "", nil, fmt.Errorf("objects: decompress: %w", err)
	}

	i := bytes.IndexByte(framed, 0)
	if i < 0 {
		return "", nil, errors.New("objects: object header not found")
	}
	hdr := string(framed[:i])
	kind, size, ok := strings.Cut(hdr, " ")
	if !ok {
		return "", nil, fmt.Errorf("objects: invalid object header %q", hdr)
	}
	body = framed[i+1:]
	sz, err := strconv.Atoi(size)
	if err != nil {
		return "", nil, fmt.Errorf("objects: invalid object size %q: %w", size, err)
	} else if sz != len(body) {
		return "", nil, fmt.Errorf("objects: wrong object size (have %d bytes, want %d) %s", len(body), sz, scanner.AtLine(1))
	}
	return kind, body, nil
}

func hexToRaw(hexStr string) ([]byte, error) {
	if len(hexStr) != sha1.Size*2 {
		return nil, fmt.Errorf("wrong hash length %d", len(hexStr))
	}
	raw := make([]byte, sha1.Size)
	for i := range raw {
		hi, err := hexDigit(hexStr[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := hexDigit(hexStr[2*i+1])
		if err != nil {
			return nil, err
		}
		raw[i] = hi<<4 | lo
	}
	return raw, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}
