// Package cmdrun wires the apply/resume operation — the default
// behavior of this program — into the command-tree entry point. It
// is the glue between the CLI layer and the amrun driver: resolving
// the enclosing repository, loading configuration, constructing the
// production vcs.Backend, and mapping the driver's outcome onto the
// process's exit status.
package cmdrun

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/creachadair/command"
	"github.com/creachadair/ctrl"
	"github.com/creachadair/gitam/internal/amrun"
	"github.com/creachadair/gitam/internal/config"
	"github.com/creachadair/gitam/internal/repolocator"
	"github.com/creachadair/gitam/internal/vcs"
)

var patchFormat string

// Command applies (or resumes applying) a patch series as commits.
var Command = &command.C{
	Name:  "run",
	Usage: "[--patch-format=mbox] [(<mbox>|<Maildir>|-)...]",
	Help: `Apply a patch series as commits.

With no session in progress, splits the given mbox/Maildir inputs (or
stdin, named "-") into a patch series and begins applying it. With a
session already in progress in this repository, resumes it instead and
any input arguments are ignored.`,

	SetFlags: func(env *command.Env, fs *flag.FlagSet) {
		fs.StringVar(&patchFormat, "patch-format", "", `Input format ("mbox" is the only value accepted)`)
	},

	Run: runApply,
}

func runApply(env *command.Env, args []string) error {
	if patchFormat != "" && patchFormat != "mbox" {
		return fmt.Errorf("unsupported --patch-format %q", patchFormat)
	}

	ctx := env.Context()
	repo, err := repolocator.Locate(ctx, "")
	if err != nil {
		ctrl.Exitf(128, "%v", err)
	}

	cfg, err := config.Load(filepath.Join(repo.Root, config.FileName))
	if err != nil {
		ctrl.Exitf(128, "%v", err)
	}

	format := patchFormat
	if format == "" {
		format = cfg.DefaultPatchFormat
	}
	if format != "" && format != "mbox" {
		return fmt.Errorf("unsupported defaultPatchFormat %q in %s", format, config.FileName)
	}

	paths, err := absolutePaths(args)
	if err != nil {
		ctrl.Exitf(128, "%v", err)
	}

	backend := &vcs.Exec{Dir: repo.Root}
	ctl := &amrun.Controller{Splitter: backend}

	state, err := ctl.Open(ctx, repo.SessionDir(), format, paths)
	if err != nil {
		var unrec *amrun.UnrecognizedFormatError
		if errors.As(err, &unrec) {
			ctrl.Exitf(128, "error: patch format detection failed")
		}
		ctrl.Exitf(128, "%v", err)
	}

	driver := &amrun.Driver{Backend: backend, Config: cfg, Stdout: os.Stdout}
	if err := driver.Run(ctx, state); err != nil {
		ctrl.Exitf(128, "%v", err)
	}
	return nil
}

// absolutePaths resolves each positional argument relative to the
// process's actual working directory, leaving the literal "-" (stdin)
// untouched. Patch-series paths are handed off to subprocesses that
// run with the repository root as their working directory, so a
// relative path typed from a subdirectory must be made absolute here
// or it would resolve against the wrong directory downstream.
func absolutePaths(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "-" {
			out[i] = a
			continue
		}
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", a, err)
		}
		out[i] = abs
	}
	return out, nil
}
