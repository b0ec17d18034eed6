// Program gitam is a resumable patch-series applier: point it at an
// mbox, a Maildir, or stdin, and it splits the input into individual
// patches and commits them one at a time, picking back up where it
// left off if a previous run was interrupted or a patch failed to
// apply.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/creachadair/command"
	"github.com/creachadair/gitam/internal/cmdarchive"
	"github.com/creachadair/gitam/internal/cmdinspect"
	"github.com/creachadair/gitam/internal/cmdrun"
)

// reexecLegacyAM implements the _GIT_USE_BUILTIN_AM gate: unless that
// variable is set, this program transparently re-executes the legacy
// "git-am" found on git's exec-path with the original argv, rather
// than running the built-in implementation below. A failure to find
// or exec the legacy binary is fatal, since the gate being unset means
// the caller explicitly wants the legacy path.
func reexecLegacyAM() {
	if os.Getenv("_GIT_USE_BUILTIN_AM") != "" {
		return
	}
	execPath, err := gitExecPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gitam: resolving git exec-path: %v\n", err)
		os.Exit(128)
	}
	legacy := filepath.Join(execPath, "git-am")
	argv := append([]string{legacy}, os.Args[1:]...)
	if err := syscall.Exec(legacy, argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "gitam: re-executing %s: %v\n", legacy, err)
		os.Exit(128)
	}
}

func gitExecPath() (string, error) {
	out, err := exec.Command("git", "--exec-path").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func main() {
	reexecLegacyAM()

	root := &command.C{
		Name:  command.ProgramName(),
		Usage: "<command> [arguments]",
		Help: `gitam applies or resumes a patch series as commits.

Running with no subcommand is equivalent to "gitam run": apply the
given inputs, or resume a session already in progress.`,

		Commands: []*command.C{
			cmdrun.Command,
			cmdinspect.Command,
			cmdarchive.Command,
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}
	env := root.NewEnv(nil).MergeFlags(true)

	args := os.Args[1:]
	if len(args) == 0 || (args[0] != "help" && args[0] != "version" && !hasSubcommand(root, args[0])) {
		args = append([]string{"run"}, args...)
	}
	command.RunOrFail(env, args)
}

func hasSubcommand(root *command.C, name string) bool {
	for _, c := range root.Commands {
		if c.Name == name {
			return true
		}
	}
	return false
}
