package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Exec fulfills Backend by invoking the real git plumbing commands as
// subprocesses, wrapping each external tool with
// exec.Command/exec.CommandContext.
type Exec struct {
	// Dir is the repository working directory each subprocess runs in.
	Dir string
	// Git overrides the git binary name/path; empty means "git".
	Git string
}

func (e *Exec) bin() string {
	if e.Git != "" {
		return e.Git
	}
	return "git"
}

func (e *Exec) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, e.bin(), args...)
	cmd.Dir = e.Dir
	return cmd
}

// runCaptured runs cmd, returning trimmed stdout. Stderr is preserved
// in the error on failure so callers can surface plumbing diagnostics.
func runCaptured(cmd *exec.Cmd) (string, error) {
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", &PlumbingError{Args: cmd.Args, Err: err, Stderr: errBuf.String()}
	}
	return strings.TrimSpace(out.String()), nil
}

// PlumbingError wraps a failed git subprocess invocation with its
// stderr, so the driver can report a useful diagnostic without
// re-running the command.
type PlumbingError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *PlumbingError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *PlumbingError) Unwrap() error { return e.Err }

// Split invokes "git mailsplit -d<prec> -o<sessionDir> -b -- paths...".
func (e *Exec) Split(ctx context.Context, sessionDir string, prec int, paths []string) (int, error) {
	args := []string{"mailsplit", fmt.Sprintf("-d%d", prec), "-o" + sessionDir, "-b", "--"}
	args = append(args, paths...)
	out, err := runCaptured(e.command(ctx, args...))
	if err != nil {
		return 0, err
	}
	last, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("mailsplit: unparseable patch count %q: %w", out, err)
	}
	return last, nil
}

// Parse invokes "git mailinfo <msgPath> <diffPath>" with stdin bound
// to the raw patch file and stdout captured to infoPath.
func (e *Exec) Parse(ctx context.Context, patchPath, msgPath, diffPath, infoPath string) error {
	in, err := os.Open(patchPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(infoPath)
	if err != nil {
		return err
	}
	defer out.Close()

	cmd := e.command(ctx, "mailinfo", msgPath, diffPath)
	cmd.Stdin = in
	cmd.Stdout = out
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return &PlumbingError{Args: cmd.Args, Err: err, Stderr: errBuf.String()}
	}
	return nil
}

// ApplyToIndex invokes "git apply --index <patchPath>".
func (e *Exec) ApplyToIndex(ctx context.Context, patchPath string) error {
	_, err := runCaptured(e.command(ctx, "apply", "--index", patchPath))
	return err
}

// WriteTree invokes "git write-tree".
func (e *Exec) WriteTree(ctx context.Context) (string, error) {
	return runCaptured(e.command(ctx, "write-tree"))
}

// CommitTree invokes "git commit-tree", passing the message on stdin
// and the author/committer identities via the environment, the way
// the original am.c formats an ident string and hands it to
// commit_tree.
func (e *Exec) CommitTree(ctx context.Context, tree string, parents []string, author, committer Ident, message string) (string, error) {
	args := []string{"commit-tree", tree}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	cmd := e.command(ctx, args...)
	cmd.Stdin = strings.NewReader(message)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+author.Name,
		"GIT_AUTHOR_EMAIL="+author.Email,
		"GIT_AUTHOR_DATE="+author.Date,
		"GIT_COMMITTER_NAME="+committer.Name,
		"GIT_COMMITTER_EMAIL="+committer.Email,
		"GIT_COMMITTER_DATE="+committer.Date,
	)
	return runCaptured(cmd)
}

// ResolveRef invokes "git rev-parse --verify --quiet <ref>". A
// non-zero exit with no other subprocess failure means the ref does
// not resolve, which is not an error: the caller uses it to detect an
// empty history.
func (e *Exec) ResolveRef(ctx context.Context, ref string) (string, bool, error) {
	cmd := e.command(ctx, "rev-parse", "--verify", "--quiet", ref)
	out, err := runCaptured(cmd)
	if err != nil {
		var pe *PlumbingError
		var ee *exec.ExitError
		if errors.As(err, &pe) && errors.As(pe.Err, &ee) {
			return "", false, nil
		}
		return "", false, err
	}
	return out, true, nil
}

// UpdateRef invokes "git update-ref -m <reflogMessage> <ref> <newValue> [<oldValue>]".
func (e *Exec) UpdateRef(ctx context.Context, ref, newValue, oldValue, reflogMessage string) error {
	args := []string{"update-ref", "-m", reflogMessage, ref, newValue}
	if oldValue != "" {
		args = append(args, oldValue)
	}
	_, err := runCaptured(e.command(ctx, args...))
	return err
}

var _ Backend = (*Exec)(nil)
