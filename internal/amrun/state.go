// Package amrun implements the apply/commit driver and session
// controller: the part of the pipeline that actually turns parsed
// patches into commits, and that decides whether a run is starting
// fresh or picking up a session left behind by an earlier, interrupted
// one.
package amrun

import (
	"github.com/creachadair/gitam/internal/session"
)

// Prec is the fixed width patch filenames are zero-padded to.
const Prec = 4

// State is the in-memory mirror of the durable session fields needed
// to drive the apply/commit loop. Fields are unexported; callers
// interact with it only through Controller and Driver.
type State struct {
	store *session.Store

	cur, last int

	authorName, authorEmail, authorDate string
	msg                                 string
}

// Dir is the absolute path to the session directory.
func (s *State) Dir() string { return s.store.Dir }

// Cur is the 1-indexed cursor of the patch to process next.
func (s *State) Cur() int { return s.cur }

// Last is the 1-indexed index of the final patch in the series.
func (s *State) Last() int { return s.last }

func newState(store *session.Store) *State {
	return &State{store: store}
}

func (s *State) resetPerPatch() {
	s.authorName, s.authorEmail, s.authorDate = "", "", ""
	s.msg = ""
}
