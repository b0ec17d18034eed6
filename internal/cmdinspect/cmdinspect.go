// Package cmdinspect implements "gitam inspect", a read-only viewer
// for loose git objects: a single-purpose command that dispatches on
// a storage key, decoding the commit/tree/blob shapes in
// internal/objects.
package cmdinspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creachadair/command"
	"github.com/creachadair/gitam/internal/objects"
	"github.com/creachadair/gitam/internal/repolocator"
)

// Command prints the decoded form of a loose object by hash.
var Command = &command.C{
	Name:  "inspect",
	Usage: "<hash>",
	Help:  "Print the decoded form of a loose git object (commit, tree, or blob)",

	Run: runInspect,
}

func runInspect(env *command.Env, args []string) error {
	if len(args) != 1 {
		return errors.New("exactly one <hash> argument is required")
	}
	hash := args[0]

	repo, err := repolocator.Locate(env.Context(), "")
	if err != nil {
		return err
	}
	store := objects.NewLooseStore(repo.GitDir)
	if !store.Has(hash) {
		return fmt.Errorf("inspect: no loose object %s", hash)
	}
	kind, body, err := store.Read(hash)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	switch kind {
	case "commit":
		return printCommit(body)
	case "tree":
		return printTree(body)
	case "blob":
		fmt.Printf("blob %d bytes\n", len(body))
		return nil
	default:
		return fmt.Errorf("inspect: unrecognized object kind %q", kind)
	}
}

func printCommit(body []byte) error {
	c, err := objects.UnmarshalCommit(body)
	if err != nil {
		return fmt.Errorf("inspect: decoding commit: %w", err)
	}
	fmt.Printf("tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Printf("parent %s\n", p)
	}
	fmt.Printf("author %s\n", c.Author)
	fmt.Printf("committer %s\n", c.Committer)
	fmt.Println()
	fmt.Println(strings.TrimRight(c.Message, "\n"))
	return nil
}

func printTree(body []byte) error {
	t, err := objects.UnmarshalTree(body)
	if err != nil {
		return fmt.Errorf("inspect: decoding tree: %w", err)
	}
	for _, e := range t {
		kind := "blob"
		if e.IsDir() {
			kind = "tree"
		}
		fmt.Printf("%06o %s %s\t%s\n", e.Mode, kind, e.Hash, e.Name)
	}
	return nil
}
