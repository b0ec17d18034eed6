// Package session manages the on-disk session directory that an am run
// uses to persist its progress between patches, and across process
// restarts.
package session

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/creachadair/atomicfile"
)

// Store owns a session directory rooted at Dir. It provides the scalar
// read/write primitives the driver uses to persist cursor and per-patch
// state; it does not interpret the contents of any file.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store { return &Store{Dir: dir} }

// Path joins the session root with rel.
func (s *Store) Path(rel string) string { return filepath.Join(s.Dir, rel) }

// InProgress reports whether a session exists: the directory must exist,
// and both "next" and "last" must be regular files. Any stat failure
// other than "not found" is reported as an error.
func (s *Store) InProgress() (bool, error) {
	if fi, err := os.Stat(s.Dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	} else if !fi.IsDir() {
		return false, nil
	}
	for _, rel := range []string{"next", "last"} {
		fi, err := os.Stat(s.Path(rel))
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, err
		}
		if !fi.Mode().IsRegular() {
			return false, nil
		}
	}
	return true, nil
}

// Absent is the sentinel returned by ReadInt when the requested file
// does not exist.
const Absent = -1

// ReadInt reads an integer scalar file, parsed in base 10 up to the
// first non-digit byte, after trimming surrounding whitespace. It
// returns Absent if the file does not exist.
func (s *Store) ReadInt(rel string) (int, error) {
	data, err := s.ReadScalar(rel, true)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return Absent, nil
	}
	trimmed := strings.TrimSpace(string(data))
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, &MalformedError{File: rel, Reason: "not a decimal integer"}
	}
	n, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0, &MalformedError{File: rel, Reason: err.Error()}
	}
	return n, nil
}

// ReadScalar reads the contents of the file named rel relative to the
// session directory. It returns (nil, nil) if the file does not exist.
// If trim is set, trailing whitespace is stripped.
func (s *Store) ReadScalar(rel string, trim bool) ([]byte, error) {
	data, err := os.ReadFile(s.Path(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if trim {
		data = []byte(strings.TrimRight(string(data), " \t\r\n"))
	}
	return data, nil
}

// WriteScalar writes data to the file named rel relative to the session
// directory, replacing any previous contents. The write is atomic with
// respect to concurrent readers: callers that depend on the durability
// of "next" in particular rely on this.
func (s *Store) WriteScalar(rel string, data []byte) error {
	return atomicfile.WriteData(s.Path(rel), data, 0666)
}

// WriteInt writes n as a decimal integer to the file named rel.
func (s *Store) WriteInt(rel string, n int) error {
	return s.WriteScalar(rel, []byte(strconv.Itoa(n)))
}

// Remove deletes the file named rel relative to the session directory.
// It is not an error for the file to already be absent.
func (s *Store) Remove(rel string) error {
	err := os.Remove(s.Path(rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Create creates the session directory. It tolerates the directory
// already existing (a crash during a previous setup, or an empty
// directory left by some other process).
func (s *Store) Create() error {
	if err := os.Mkdir(s.Dir, 0777); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

// Destroy recursively removes the session directory.
func (s *Store) Destroy() error {
	return os.RemoveAll(s.Dir)
}

// PatchPath returns the path to the numbered patch file for index n,
// zero-padded to prec digits.
func (s *Store) PatchPath(n, prec int) string {
	return s.Path(formatIndex(n, prec))
}

func formatIndex(n, prec int) string {
	s := strconv.Itoa(n)
	if pad := prec - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return s
}

// MalformedError reports that a session scalar file did not contain the
// expected shape of data.
type MalformedError struct {
	File   string
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed session file " + strconv.Quote(e.File) + ": " + e.Reason
}
