// Package archive implements the Archive Exporter: a mark-and-sweep
// copy of every git object reachable from a set of commits into a
// destination blob.Store. The mark/sweep shape (build a reachability
// set, then drive a bounded-concurrency sweep over it) mirrors how a
// file-tree garbage collector walks a reachability graph; here the
// "roots" are commit hashes and the graph being walked is git's
// commit/tree/blob object graph, so the sweep copies objects into the
// destination instead of deleting them out of the source.
package archive

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"bitbucket.org/creachadair/stringset"
	"github.com/creachadair/ffs/blob"
	"github.com/creachadair/gitam/internal/objects"
	"github.com/creachadair/taskgroup"
)

// Stats summarizes one Export call.
type Stats struct {
	Visited int // total objects marked reachable
	Copied  int // objects actually written to the destination
}

// Export walks the object graph reachable from roots (commit hashes)
// in src, and copies every object it finds to dst, keyed by hex hash.
// Objects already present in dst (Replace: false on the Put) are left
// untouched rather than rewritten.
func Export(ctx context.Context, src *objects.LooseStore, dst blob.Store, roots []string) (Stats, error) {
	var marked stringset.Set

	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		hash := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if marked.Contains(hash) {
			continue
		}
		marked.Add(hash)

		kind, body, err := src.Read(hash)
		if err != nil {
			return Stats{}, fmt.Errorf("archive: reading %s: %w", hash, err)
		}
		switch kind {
		case "commit":
			c, err := objects.UnmarshalCommit(body)
			if err != nil {
				return Stats{}, fmt.Errorf("archive: decoding commit %s: %w", hash, err)
			}
			queue = append(queue, c.Tree)
			queue = append(queue, c.Parents...)
		case "tree":
			t, err := objects.UnmarshalTree(body)
			if err != nil {
				return Stats{}, fmt.Errorf("archive: decoding tree %s: %w", hash, err)
			}
			for _, e := range t {
				queue = append(queue, e.Hash)
			}
		case "blob":
			// no children
		default:
			return Stats{}, fmt.Errorf("archive: unrecognized object kind %q for %s", kind, hash)
		}
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, run := taskgroup.New(taskgroup.Trigger(cancel)).Limit(runtime.NumCPU())
	stats := Stats{Visited: marked.Len()}
	var copied int64
	for _, hash := range marked.Elements() {
		hash := hash
		run(func() error {
			raw, err := src.Raw(hash)
			if err != nil {
				return fmt.Errorf("archive: reading %s: %w", hash, err)
			}
			err = dst.Put(sctx, blob.PutOptions{Key: hash, Data: raw, Replace: false})
			if blob.IsKeyExists(err) {
				return nil
			} else if err != nil {
				return fmt.Errorf("archive: writing %s: %w", hash, err)
			}
			atomic.AddInt64(&copied, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	stats.Copied = int(copied)
	return stats, nil
}
